package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/woutermans/searchllama/embedding"
	"github.com/woutermans/searchllama/fetch"
	"github.com/woutermans/searchllama/generation"
	"github.com/woutermans/searchllama/index"
	"github.com/woutermans/searchllama/vector"
	"github.com/woutermans/searchllama/websearch"
)

// --- fakes -----------------------------------------------------------

type fakeEmbedProvider struct {
	vectors map[string]vector.Embedding // exact-match overrides
	fallback vector.Embedding
}

func (f *fakeEmbedProvider) Embed(_ context.Context, text string) ([]float64, error) {
	for prefix, v := range f.vectors {
		if strings.HasPrefix(text, prefix) {
			return []float64(v), nil
		}
	}
	return []float64(f.fallback), nil
}

type fakeSearchClient struct {
	results map[string][]websearch.Result
}

func (f *fakeSearchClient) Search(_ context.Context, query string, max int) ([]websearch.Result, error) {
	r := f.results[query]
	if len(r) > max {
		r = r[:max]
	}
	return r, nil
}

type fakeGenProvider struct {
	expansion string

	mu        sync.Mutex
	gotPrompt string
}

func (f *fakeGenProvider) Generate(_ context.Context, _, _ string) (string, error) {
	return f.expansion, nil
}

func (f *fakeGenProvider) GenerateStream(_ context.Context, _ string, prompt string, _ []int64) (<-chan generation.Fragment, <-chan error) {
	f.mu.Lock()
	f.gotPrompt = prompt
	f.mu.Unlock()

	frags := make(chan generation.Fragment, 1)
	errc := make(chan error, 1)
	frags <- generation.Fragment{Text: "answer", Context: []int64{1}}
	close(frags)
	close(errc)
	return frags, errc
}

func (f *fakeGenProvider) prompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotPrompt
}

// fakePage returns fixed innerText/images for any navigation, or errors if
// configured to simulate an unreachable page.
type fakePage struct {
	text string
	fail bool
}

func (p *fakePage) Goto(_ context.Context, _ string) error {
	if p.fail {
		return errors.New("navigation failed")
	}
	return nil
}

func (p *fakePage) Eval(_ context.Context, expr string, out interface{}) error {
	switch v := out.(type) {
	case *string:
		*v = p.text
	case *[]struct {
		Src string
		Alt string
	}:
		*v = nil
	}
	return nil
}

func (p *fakePage) Close(context.Context) error { return nil }

type fakeBrowserCtx struct{ page *fakePage }

func (c *fakeBrowserCtx) NewPage(context.Context) (fetch.Page, error) { return c.page, nil }
func (c *fakeBrowserCtx) Close(context.Context) error                 { return nil }

type fakeDriver struct {
	text string
	fail bool
}

func (d *fakeDriver) NewContext(context.Context) (fetch.Context, error) {
	return &fakeBrowserCtx{page: &fakePage{text: d.text, fail: d.fail}}, nil
}

func newTestIndex(t *testing.T) *index.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	idx, err := index.NewStore(db)
	require.NoError(t, err)
	return idx
}

func drain(t *testing.T, ch <-chan Message, timeout time.Duration) []Message {
	t.Helper()
	var msgs []Message
	deadline := time.After(timeout)
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return msgs
			}
			msgs = append(msgs, m)
		case <-deadline:
			t.Fatal("timed out draining engine output")
			return msgs
		}
	}
}

// --- scenario tests ----------------------------------------------------

func TestEngine_CacheOnlyNoWeb(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "http://a", "Foo", "Foo page", vector.Embedding{1, 0}, []vector.Embedding{{1, 0}}))

	embeds, err := embedding.NewService(&fakeEmbedProvider{
		vectors:  map[string]vector.Embedding{"Foo (": {1, 0}},
		fallback: vector.Embedding{0, 0},
	}, nil, nil)
	require.NoError(t, err)

	fetcher := fetch.NewFetcher(&fakeDriver{fail: true}, embeds, nil, 0, nil)
	search := &fakeSearchClient{results: map[string][]websearch.Result{}}
	gen := &fakeGenProvider{expansion: ""}

	engine := NewEngine(idx, embeds, fetcher, search, gen, nil, nil)
	ch, err := engine.Search(ctx, "Foo")
	require.NoError(t, err)

	msgs := drain(t, ch, 5*time.Second)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Results, 1)
	assert.Equal(t, "http://a", msgs[0].Results[0].URL)
	assert.InDelta(t, 1.3, msgs[0].Results[0].Score, 1e-9)
	assert.Empty(t, msgs[0].Summary)
}

func TestEngine_TwoSourcesCrossConfidenceGate(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	embeds, err := embedding.NewService(&fakeEmbedProvider{
		vectors:  map[string]vector.Embedding{"q (": {1, 0}},
		fallback: vector.Embedding{0.9, 0.43588989}, // cos([1,0], this) ≈ 0.9
	}, nil, nil)
	require.NoError(t, err)

	fetcher := fetch.NewFetcher(&fakeDriver{text: "some body text"}, embeds, nil, 2000, nil)
	search := &fakeSearchClient{results: map[string][]websearch.Result{
		"q": {
			{URL: "http://u1", Title: "t1", Content: "b1"},
			{URL: "http://u2", Title: "t2", Content: "b2"},
		},
	}}
	gen := &fakeGenProvider{expansion: ""}

	engine := NewEngine(idx, embeds, fetcher, search, gen, nil, nil)
	ch, err := engine.Search(ctx, "q")
	require.NoError(t, err)

	msgs := drain(t, ch, 5*time.Second)

	var summaryCount int
	for _, m := range msgs {
		if m.Summary != "" {
			summaryCount++
		}
	}
	assert.Equal(t, 1, summaryCount)

	prompt := gen.prompt()
	assert.Contains(t, prompt, "t1")
	assert.Contains(t, prompt, "t2")
	assert.True(t, strings.HasSuffix(prompt, "\n\nq"), "prompt must end with the original question, got %q", prompt)
}

func TestEngine_FetchFailureIsolation(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	embeds, err := embedding.NewService(&fakeEmbedProvider{fallback: vector.Embedding{1, 0}}, nil, nil)
	require.NoError(t, err)

	fetcher := fetch.NewFetcher(&fakeDriver{fail: true}, embeds, nil, 0, nil)
	search := &fakeSearchClient{results: map[string][]websearch.Result{
		"q": {{URL: "http://only", Title: "t", Content: "b"}},
	}}
	gen := &fakeGenProvider{expansion: ""}

	engine := NewEngine(idx, embeds, fetcher, search, gen, nil, nil)
	ch, err := engine.Search(ctx, "q")
	require.NoError(t, err)

	msgs := drain(t, ch, 5*time.Second)
	// Seed EntryMsg (empty index) plus zero entries from the failed fetch.
	var totalEntries int
	for _, m := range msgs {
		totalEntries += len(m.Results)
	}
	assert.Equal(t, 0, totalEntries)
}

func TestEngine_EmbedQueryFailure_IsFatal(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	failingProvider := &erroringProvider{}
	embeds, err := embedding.NewService(failingProvider, nil, nil)
	require.NoError(t, err)

	fetcher := fetch.NewFetcher(&fakeDriver{}, embeds, nil, 0, nil)
	search := &fakeSearchClient{}
	gen := &fakeGenProvider{}

	engine := NewEngine(idx, embeds, fetcher, search, gen, nil, nil)
	_, err = engine.Search(ctx, "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModel)
}

type erroringProvider struct{}

func (erroringProvider) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("boom")
}
