package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/woutermans/searchllama/embedding"
	"github.com/woutermans/searchllama/fetch"
	"github.com/woutermans/searchllama/generation"
	"github.com/woutermans/searchllama/index"
	"github.com/woutermans/searchllama/internal/metrics"
	"github.com/woutermans/searchllama/vector"
	"github.com/woutermans/searchllama/websearch"
)

// SnippetNumber is the cap on the in-memory best-snippets set (spec §4.7).
const SnippetNumber = 10

// MaxEntries caps the first, cache-seeded EntryMsg (spec §4.7 step 2).
const MaxEntries = 50

// MinConfidence is the mean-score threshold that triggers the summarizer
// (spec §4.7 step 6, the "confidence gate").
const MinConfidence = 0.72

// ChannelBuffer is the per-request output channel's buffer size (spec §5).
const ChannelBuffer = 10

// queryExpansionSystemPrompt is the fixed system prompt for step 4 (spec
// §4.7).
const queryExpansionSystemPrompt = "one query per line, no numbering"

// ErrModel indicates the fatal failure case: the initial query could not
// be embedded.
var ErrModel = errors.New("orchestrator: model error")

// ExplanationPolicy decides, for a given query, whether a summary should
// be produced at all. The current design hard-wires this to true (spec
// §4.7 step 5); exposing it as an injectable policy keeps that an open
// decision rather than inferred intent (spec §9).
type ExplanationPolicy func(query string) bool

// AlwaysExplain is the default ExplanationPolicy.
func AlwaysExplain(string) bool { return true }

// Engine is the C7 search orchestration state machine.
type Engine struct {
	index    *index.Store
	embeds   *embedding.Service
	fetcher  *fetch.Fetcher
	search   websearch.Client
	gen      generation.Provider
	explain  ExplanationPolicy
	log      *slog.Logger
}

// NewEngine constructs an Engine. explain may be nil, defaulting to
// AlwaysExplain.
func NewEngine(idx *index.Store, embeds *embedding.Service, fetcher *fetch.Fetcher, search websearch.Client, gen generation.Provider, explain ExplanationPolicy, log *slog.Logger) *Engine {
	if explain == nil {
		explain = AlwaysExplain
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{index: idx, embeds: embeds, fetcher: fetcher, search: search, gen: gen, explain: explain, log: log}
}

// Search runs the C7 pipeline for query, returning a channel of Messages.
// Embedding the query is the only fatal failure case (spec §7); everything
// after that degrades gracefully and is reported only via logging.
func (e *Engine) Search(ctx context.Context, query string) (<-chan Message, error) {
	qEmb, err := e.embeds.Embed(ctx, query+" ("+time.Now().Format(time.RFC3339)+")")
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("model_error").Inc()
		return nil, fmt.Errorf("%w: embed query: %v", ErrModel, err)
	}
	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()

	ch := make(chan Message, ChannelBuffer)
	go e.run(ctx, query, vector.Embedding(qEmb), ch)
	return ch, nil
}

func (e *Engine) run(ctx context.Context, query string, qEmb vector.Embedding, ch chan Message) {
	defer close(ch)

	scored, err := e.index.ScanScored(ctx, qEmb)
	if err != nil {
		e.log.Warn("index scan failed, continuing with empty seed", "error", err)
		scored = nil
	}

	if !sendMessage(ctx, ch, NewEntryMessage(toEntries(truncate(scored, MaxEntries)))) {
		return
	}

	candidates := truncate(scored, SnippetNumber)
	candURLs := make([]string, len(candidates))
	candTitles := make([]string, len(candidates))
	for i, c := range candidates {
		candURLs[i] = c.URL
		candTitles[i] = c.Title
	}

	state := newSnippetState()
	explainNeeded := e.explain(query)

	var wg sync.WaitGroup

	if explainNeeded && len(candURLs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.earlySummaryCheck(ctx, candURLs, candTitles, qEmb, state, query, ch, &wg)
		}()
	}

	related, err := e.expandQuery(ctx, query)
	if err != nil {
		e.log.Warn("query expansion failed, continuing with original query only", "error", err)
		related = nil
	}
	queries := append([]string{query}, related...)

	for i, sq := range queries {
		wg.Add(1)
		go func(idx int, subQuery string) {
			defer wg.Done()
			e.subQueryWorker(ctx, idx, subQuery, qEmb, state, explainNeeded, query, ch, &wg)
		}(i, sq)
	}

	wg.Wait()
	metrics.SummaryGatedTotal.WithLabelValues(strconv.FormatBool(state.triggered())).Inc()
}

func truncate(scored []index.ScoredEntry, max int) []index.ScoredEntry {
	if len(scored) > max {
		return scored[:max]
	}
	return scored
}

func toEntries(scored []index.ScoredEntry) []Entry {
	entries := make([]Entry, len(scored))
	for i, s := range scored {
		entries[i] = Entry{Score: s.Score, URL: s.URL, Title: s.Title, Description: s.Description}
	}
	return entries
}

// sendMessage sends msg on ch, returning false if ctx is canceled first
// (the client disconnected; per spec §5 this is the graceful-shutdown
// signal workers must treat as a reason to abort).
func sendMessage(ctx context.Context, ch chan<- Message, msg Message) bool {
	select {
	case ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// earlySummaryCheck implements spec §4.7 step 6.
func (e *Engine) earlySummaryCheck(ctx context.Context, urls, titles []string, qEmb vector.Embedding, state *snippetState, query string, ch chan Message, wg *sync.WaitGroup) {
	snippets, err := BestSnippets(ctx, e.fetcher, e.embeds, nil, urls, titles, qEmb, e.log)
	if err != nil {
		e.log.Warn("early summary check failed", "error", err)
		return
	}

	if state.pushBatchAndTryTrigger(snippets) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.summarize(ctx, query, state.snapshot(), ch)
		}()
	}
}

// expandQuery implements spec §4.7 step 4.
func (e *Engine) expandQuery(ctx context.Context, query string) ([]string, error) {
	resp, err := e.gen.Generate(ctx, queryExpansionSystemPrompt, query)
	if err != nil {
		return nil, err
	}

	var related []string
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			related = append(related, line)
		}
	}
	return related, nil
}
