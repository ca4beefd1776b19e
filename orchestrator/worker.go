package orchestrator

import (
	"context"
	"sync"

	"github.com/woutermans/searchllama/fetch"
	"github.com/woutermans/searchllama/vector"
	"github.com/woutermans/searchllama/websearch"
)

// searchCapFor returns the result cap for the sub-query at index idx: the
// original query (idx 0) gets 10 results, expansions get 3 (spec §4.7
// step 7a).
func searchCapFor(idx int) int {
	if idx == 0 {
		return 10
	}
	return 3
}

// subQueryWorker implements one fan-out worker (spec §4.7 step 7).
func (e *Engine) subQueryWorker(ctx context.Context, idx int, subQuery string, qEmb vector.Embedding, state *snippetState, explainNeeded bool, origQuery string, ch chan Message, outerWG *sync.WaitGroup) {
	results, err := e.search.Search(ctx, subQuery, searchCapFor(idx))
	if err != nil {
		e.log.Warn("sub-query search failed, skipping", "query", subQuery, "error", err)
		return
	}
	if len(results) == 0 {
		return
	}

	browserCtx, err := e.fetcher.NewContext(ctx)
	if err != nil {
		e.log.Warn("opening browser context failed, skipping sub-query", "query", subQuery, "error", err)
		return
	}
	defer browserCtx.Close(ctx)

	var wg sync.WaitGroup
	for _, r := range results {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.processResult(ctx, browserCtx, r, qEmb, state, explainNeeded, origQuery, ch, outerWG)
		}()
	}
	wg.Wait()

	if explainNeeded && state.forceTrigger() {
		outerWG.Add(1)
		go func() {
			defer outerWG.Done()
			e.summarize(ctx, origQuery, state.snapshot(), ch)
		}()
	}
}

// processResult implements spec §4.7 steps 7c-7e for one (url,title,body)
// result: fetch, then (while the gate is still open) snippet update, then
// entry emission and index upsert, strictly sequentially.
func (e *Engine) processResult(ctx context.Context, browserCtx fetch.Context, r websearch.Result, qEmb vector.Embedding, state *snippetState, explainNeeded bool, origQuery string, ch chan Message, outerWG *sync.WaitGroup) {
	page, err := e.fetcher.FetchIn(ctx, browserCtx, r.URL)
	if err != nil {
		e.log.Warn("fetch failed, skipping result", "url", r.URL, "error", err)
		return
	}

	if explainNeeded && state.stillNeeded() {
		snippet, err := NarrowToSnippet(ctx, e.embeds, page, r.URL, r.Title, qEmb)
		if err != nil {
			e.log.Warn("snippet narrowing failed", "url", r.URL, "error", err)
		} else if state.pushAndTryTrigger(snippet) {
			outerWG.Add(1)
			go func() {
				defer outerWG.Done()
				e.summarize(ctx, origQuery, state.snapshot(), ch)
			}()
		}
	}

	titleEmb, err := e.embeds.Embed(ctx, r.Title)
	if err != nil {
		e.log.Warn("embedding title failed, skipping entry", "url", r.URL, "error", err)
		return
	}

	score := vector.EntryScore(qEmb, vector.Embedding(titleEmb), page.ChunkEmbeddings)
	if !vector.InBounds(score) {
		e.log.Warn("entry score out of bounds, dropping", "url", r.URL, "score", score)
		return
	}

	entry := Entry{Score: score, URL: r.URL, Title: r.Title, Description: r.Content}
	sendMessage(ctx, ch, NewEntryMessage([]Entry{entry}))

	if err := e.index.Upsert(ctx, r.URL, r.Title, r.Content, vector.Embedding(titleEmb), page.ChunkEmbeddings); err != nil {
		e.log.Warn("index upsert failed, continuing", "url", r.URL, "error", err)
	}
}
