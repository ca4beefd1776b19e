package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/woutermans/searchllama/embedding"
	"github.com/woutermans/searchllama/fetch"
	"github.com/woutermans/searchllama/vector"
)

// TargetSnippetSize is the length, in runes, below which recursive
// narrowing stops (spec §4.6).
const TargetSnippetSize = 500

// bestChunk picks the chunk (with its embedding and its cosine to q) with
// the highest similarity among chunks/embs, which must be the same length
// and non-empty.
func bestChunk(q vector.Embedding, chunks []string, embs []vector.Embedding) (string, vector.Embedding, float64, error) {
	bestIdx := -1
	best := 0.0
	for i, e := range embs {
		c, err := vector.Cosine(q, e)
		if err != nil {
			continue
		}
		if bestIdx == -1 || c > best {
			bestIdx = i
			best = c
		}
	}
	if bestIdx == -1 {
		return "", nil, 0, fmt.Errorf("orchestrator: no comparable chunks")
	}
	return chunks[bestIdx], embs[bestIdx], best, nil
}

// NarrowToSnippet implements the shared part of C6's best_snippet: given a
// page already fetched, pick its best chunk against q, then recursively
// narrow that chunk until it drops below TargetSnippetSize.
func NarrowToSnippet(ctx context.Context, embeds *embedding.Service, page fetch.PageContent, url, title string, q vector.Embedding) (Snippet, error) {
	text, emb, score, err := bestChunk(q, page.Chunks, page.ChunkEmbeddings)
	if err != nil {
		return Snippet{}, err
	}

	current := embedding.DefaultMaxChunkSize / 2
	for len([]rune(text)) >= TargetSnippetSize && current > 0 {
		chunks, embs, err := embeds.EmbedLarge(ctx, text, current)
		if err != nil {
			break
		}
		narrowed, narrowedEmb, narrowedScore, err := bestChunk(q, chunks, embs)
		if err != nil {
			break
		}
		text, emb, score = narrowed, narrowedEmb, narrowedScore
		current /= 2
	}

	return Snippet{
		URL:       url,
		Title:     title,
		Text:      text,
		Embedding: emb,
		Score:     score,
		Images:    page.Images,
	}, nil
}

// BestSnippet implements C6's best_snippet: fetch url, then NarrowToSnippet.
func BestSnippet(ctx context.Context, fetcher *fetch.Fetcher, embeds *embedding.Service, browserCtx fetch.Context, url, title string, q vector.Embedding) (Snippet, error) {
	var page fetch.PageContent
	var err error
	if browserCtx != nil {
		page, err = fetcher.FetchIn(ctx, browserCtx, url)
	} else {
		page, err = fetcher.Fetch(ctx, url)
	}
	if err != nil {
		return Snippet{}, err
	}
	return NarrowToSnippet(ctx, embeds, page, url, title, q)
}

// BestSnippets implements C6's best_snippets: fans BestSnippet out in
// parallel over urls/titles sharing one browser context, sorted
// descending by score. If browserCtx is nil, one is opened and closed
// around this call.
func BestSnippets(ctx context.Context, fetcher *fetch.Fetcher, embeds *embedding.Service, browserCtx fetch.Context, urls, titles []string, q vector.Embedding, log *slog.Logger) ([]Snippet, error) {
	if log == nil {
		log = slog.Default()
	}
	owned := browserCtx == nil
	if owned {
		bc, err := fetcher.NewContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: open browser context: %w", err)
		}
		browserCtx = bc
		defer browserCtx.Close(ctx)
	}

	snippets := make([]Snippet, len(urls))
	ok := make([]bool, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	for i := range urls {
		i := i
		g.Go(func() error {
			s, err := BestSnippet(gctx, fetcher, embeds, browserCtx, urls[i], titles[i], q)
			if err != nil {
				log.Warn("best snippet failed, skipping", "url", urls[i], "error", err)
				return nil // per spec §4.10: log and skip, never abort the fan-out
			}
			snippets[i] = s
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Snippet, 0, len(urls))
	for i, s := range snippets {
		if ok[i] {
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
