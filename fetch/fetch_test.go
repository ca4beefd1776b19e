package fetch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woutermans/searchllama/diskcache"
	"github.com/woutermans/searchllama/embedding"
)

type fakeProvider struct{ calls int }

func (f *fakeProvider) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls++
	return []float64{float64(len(text)), 0}, nil
}

type fakePage struct {
	text   string
	images []struct {
		Src string
		Alt string
	}
	gotoErr error
}

func (p *fakePage) Goto(ctx context.Context, url string) error { return p.gotoErr }

func (p *fakePage) Eval(ctx context.Context, expr string, out interface{}) error {
	switch v := out.(type) {
	case *string:
		*v = p.text
	case *[]struct {
		Src string
		Alt string
	}:
		*v = p.images
	}
	return nil
}

func (p *fakePage) Close(ctx context.Context) error { return nil }

type fakeContext struct{ page *fakePage }

func (c *fakeContext) NewPage(ctx context.Context) (Page, error) { return c.page, nil }
func (c *fakeContext) Close(ctx context.Context) error           { return nil }

type fakeDriver struct{ page *fakePage }

func (d *fakeDriver) NewContext(ctx context.Context) (Context, error) {
	return &fakeContext{page: d.page}, nil
}

func newTestFetcher(t *testing.T, page *fakePage) (*Fetcher, *fakeProvider) {
	t.Helper()
	fp := &fakeProvider{}
	embeds, err := embedding.NewService(fp, nil, nil)
	require.NoError(t, err)
	cache, err := diskcache.NewFSCache(t.TempDir())
	require.NoError(t, err)
	return NewFetcher(&fakeDriver{page: page}, embeds, cache, 50, nil), fp
}

func TestFetch_FiltersImages(t *testing.T) {
	page := &fakePage{
		text: "hello world",
		images: []struct {
			Src string
			Alt string
		}{
			{Src: "http://x/a.png", Alt: "a"},
			{Src: "/relative.png", Alt: "b"},
			{Src: "http://x/c.png", Alt: ""},
			{Src: "", Alt: "d"},
		},
	}
	f, _ := newTestFetcher(t, page)

	out, err := f.Fetch(context.Background(), "http://example.com")
	require.NoError(t, err)
	require.Len(t, out.Images, 1)
	assert.Equal(t, "http://x/a.png", out.Images[0].Src)
}

func TestFetch_CachesByURL(t *testing.T) {
	page := &fakePage{text: "some content"}
	f, fp := newTestFetcher(t, page)
	ctx := context.Background()

	_, err := f.Fetch(ctx, "http://example.com/a")
	require.NoError(t, err)
	callsAfterFirst := fp.calls

	_, err = f.Fetch(ctx, "http://example.com/a")
	require.NoError(t, err)

	// Cache hit still re-embeds (model may have changed), but must not
	// re-navigate: swap in a page that errors on Goto and confirm the
	// cached path still succeeds.
	f.driver = &fakeDriver{page: &fakePage{gotoErr: assert.AnError}}
	out, err := f.Fetch(ctx, "http://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "some content", out.Text)
	assert.GreaterOrEqual(t, fp.calls, callsAfterFirst)
}

func TestFetch_NavigationErrorNotCached(t *testing.T) {
	page := &fakePage{gotoErr: assert.AnError}
	f, _ := newTestFetcher(t, page)

	_, err := f.Fetch(context.Background(), "http://example.com/broken")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrFetch)
}
