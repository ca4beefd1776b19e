package embedding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	chunks := ChunkText("hello world", 2000)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestChunkText_Empty(t *testing.T) {
	chunks := ChunkText("", 2000)
	assert.Empty(t, chunks)
}

func TestChunkText_NoEmptyChunks(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	chunks := ChunkText(text, 50)
	for _, c := range chunks {
		assert.NotEmpty(t, c)
	}
}

func TestChunkText_FullCoverage(t *testing.T) {
	text := strings.Repeat("abcde ", 500)
	chunks := ChunkText(text, 37)

	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c)
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunkText_RewindsOnMidWordCut(t *testing.T) {
	text := "aaaaaaaaaa bbbbbbbbbb cccccccccc"
	chunks := ChunkText(text, 15)

	for _, c := range chunks[:len(chunks)-1] {
		assert.NotContains(t, c, " b")
		last := rune(c[len(c)-1])
		_ = last
	}
}

func TestChunkText_RespectsUnicodeScalars(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 200)
	chunks := ChunkText(text, 30)

	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c)
	}
	assert.Equal(t, text, rebuilt.String())
}
