// Package fetch drives a headless browser to retrieve and embed page
// content, disk-caching results by URL.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/woutermans/searchllama/diskcache"
	"github.com/woutermans/searchllama/embedding"
	"github.com/woutermans/searchllama/internal/metrics"
	"github.com/woutermans/searchllama/vector"
)

// NavigateDeadline bounds how long a single page load may take before it is
// treated as a fetch failure.
const NavigateDeadline = 15 * time.Second

// MaxInFlight is the global concurrency cap across all Fetch calls.
const MaxInFlight = 8

// MaxImageFieldLen is the maximum length, in characters, an image src or alt
// may have to be kept in a PageContent's Images.
const MaxImageFieldLen = 255

// ErrFetch indicates a page could not be fetched or embedded.
var ErrFetch = errors.New("fetch: error")

// ImageRef is a filtered (src, alt) pair extracted from a page's <img>
// elements.
type ImageRef struct {
	Src string
	Alt string
}

// PageContent is the result of fetching and embedding a page.
type PageContent struct {
	URL             string
	Text            string
	Chunks          []string
	ChunkEmbeddings []vector.Embedding
	Images          []ImageRef
}

// Context is an open browser context, analogous to a browser tab session.
// Callers obtain one from a BrowserDriver and must Close it when done.
type Context interface {
	// NewPage opens a page within this context.
	NewPage(ctx context.Context) (Page, error)
	// Close releases the browser context.
	Close(ctx context.Context) error
}

// Page is a single browser tab.
type Page interface {
	// Goto navigates to url, waiting up to the context deadline for the
	// network to settle.
	Goto(ctx context.Context, url string) error
	// Eval evaluates a JS expression and decodes its result into out.
	Eval(ctx context.Context, expr string, out interface{}) error
	// Close releases the page.
	Close(ctx context.Context) error
}

// BrowserDriver is the external headless-browser collaborator (spec §6).
type BrowserDriver interface {
	NewContext(ctx context.Context) (Context, error)
}

// Fetcher retrieves page content through a BrowserDriver, embeds it, and
// disk-caches the result keyed by URL.
type Fetcher struct {
	driver  BrowserDriver
	embeds  *embedding.Service
	cache   diskcache.Cache
	sem     *semaphore.Weighted
	chunk   int
	log     *slog.Logger
}

// NewContext opens a browser context for callers that want to share one
// context across several Fetch/FetchIn calls (e.g. C6's best_snippets).
func (f *Fetcher) NewContext(ctx context.Context) (Context, error) {
	return f.driver.NewContext(ctx)
}

// NewFetcher creates a Fetcher. chunkSize is passed to EmbedLarge; 0 uses
// embedding.DefaultMaxChunkSize.
func NewFetcher(driver BrowserDriver, embeds *embedding.Service, cache diskcache.Cache, chunkSize int, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		driver: driver,
		embeds: embeds,
		cache:  cache,
		sem:    semaphore.NewWeighted(MaxInFlight),
		chunk:  chunkSize,
		log:    log,
	}
}

type cachedPage struct {
	Text   string
	Images []ImageRef
}

// Fetch retrieves and embeds the page at url using a fresh browser
// context, serving from the disk cache when available. Failures
// (navigation timeout, JS-eval failure) are never cached.
func (f *Fetcher) Fetch(ctx context.Context, url string) (PageContent, error) {
	return f.fetch(ctx, nil, url)
}

// FetchIn is like Fetch but reuses browserCtx instead of opening and
// closing a new one, per C6's requirement that best_snippets fan out over
// one shared browser context.
func (f *Fetcher) FetchIn(ctx context.Context, browserCtx Context, url string) (PageContent, error) {
	return f.fetch(ctx, browserCtx, url)
}

func (f *Fetcher) fetch(ctx context.Context, browserCtx Context, url string) (result PageContent, err error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return PageContent{}, fmt.Errorf("%w: acquire slot: %v", ErrFetch, err)
	}
	metrics.FetchInFlight.Inc()
	start := time.Now()
	defer func() {
		metrics.FetchInFlight.Dec()
		f.sem.Release(1)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.FetchLatencySeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	if cached, ok, err := f.fromCache(ctx, url); err != nil {
		f.log.Warn("fetch cache read failed", "url", url, "error", err)
	} else if ok {
		return f.embedCached(ctx, url, cached)
	}

	page, err := f.load(ctx, browserCtx, url)
	if err != nil {
		return PageContent{}, err
	}

	if f.cache != nil {
		if blob, err := encodeCachedPage(page); err == nil {
			if err := f.cache.Put(ctx, url, blob); err != nil {
				f.log.Warn("fetch cache write failed", "url", url, "error", err)
			}
		}
	}

	return f.embedCached(ctx, url, page)
}

func (f *Fetcher) load(ctx context.Context, browserCtx Context, url string) (cachedPage, error) {
	navCtx, cancel := context.WithTimeout(ctx, NavigateDeadline)
	defer cancel()

	if browserCtx == nil {
		owned, err := f.driver.NewContext(navCtx)
		if err != nil {
			return cachedPage{}, fmt.Errorf("%w: new browser context: %v", ErrFetch, err)
		}
		defer owned.Close(ctx)
		browserCtx = owned
	}

	page, err := browserCtx.NewPage(navCtx)
	if err != nil {
		return cachedPage{}, fmt.Errorf("%w: new page: %v", ErrFetch, err)
	}
	defer page.Close(ctx)

	if err := page.Goto(navCtx, url); err != nil {
		return cachedPage{}, fmt.Errorf("%w: navigate %q: %v", ErrFetch, url, err)
	}

	var text string
	if err := page.Eval(navCtx, "document.body.innerText", &text); err != nil {
		return cachedPage{}, fmt.Errorf("%w: eval innerText: %v", ErrFetch, err)
	}

	var rawImages []struct {
		Src string
		Alt string
	}
	const imgExpr = `Array.from(document.querySelectorAll('img')).map(img => ({Src: img.src, Alt: img.alt || img.title}))`
	if err := page.Eval(navCtx, imgExpr, &rawImages); err != nil {
		return cachedPage{}, fmt.Errorf("%w: eval images: %v", ErrFetch, err)
	}

	images := make([]ImageRef, 0, len(rawImages))
	for _, img := range rawImages {
		if isValidImageRef(img.Src, img.Alt) {
			images = append(images, ImageRef{Src: img.Src, Alt: img.Alt})
		}
	}

	return cachedPage{Text: text, Images: images}, nil
}

func isValidImageRef(src, alt string) bool {
	if src == "" || alt == "" {
		return false
	}
	if len(src) > MaxImageFieldLen || len(alt) > MaxImageFieldLen {
		return false
	}
	return strings.HasPrefix(src, "http")
}

func (f *Fetcher) embedCached(ctx context.Context, url string, page cachedPage) (PageContent, error) {
	chunks, embs, err := f.embeds.EmbedLarge(ctx, page.Text, f.chunk)
	if err != nil {
		return PageContent{}, fmt.Errorf("%w: embed %q: %v", ErrFetch, url, err)
	}
	return PageContent{
		URL:             url,
		Text:            page.Text,
		Chunks:          chunks,
		ChunkEmbeddings: embs,
		Images:          page.Images,
	}, nil
}

func (f *Fetcher) fromCache(ctx context.Context, url string) (cachedPage, bool, error) {
	if f.cache == nil {
		return cachedPage{}, false, nil
	}
	blob, ok, err := f.cache.Get(ctx, url)
	if err != nil || !ok {
		return cachedPage{}, false, err
	}
	page, err := decodeCachedPage(blob)
	if err != nil {
		return cachedPage{}, false, err
	}
	return page, true, nil
}
