package embedding

import "unicode"

// DefaultMaxChunkSize is the default chunk_size used by EmbedLarge when the
// caller does not override it.
const DefaultMaxChunkSize = 2000

// ChunkText splits text into chunks of at most chunkSize Unicode scalars
// (runes), never empty, covering the input exactly once in order. When a
// would-be split point falls mid-word, the split is rewound to the last
// whitespace rune within that chunk; the whitespace becomes the last
// character of the preceding chunk rather than the first of the next.
func ChunkText(text string, chunkSize int) []string {
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultMaxChunkSize
	}

	runes := []rune(text)
	n := len(runes)
	chunks := make([]string, 0, n/chunkSize+1)

	pos := 0
	for pos < n {
		end := pos + chunkSize
		if end > n {
			end = n
		}

		if end < n && !unicode.IsSpace(runes[end-1]) && !unicode.IsSpace(runes[end]) {
			// The boundary falls mid-word: rewind to the last whitespace
			// within this chunk's window, if any.
			w := -1
			for i := end - 1; i >= pos; i-- {
				if unicode.IsSpace(runes[i]) {
					w = i
					break
				}
			}
			if w >= 0 {
				end = w + 1
			}
		}

		chunks = append(chunks, string(runes[pos:end]))
		pos = end
	}

	return chunks
}
