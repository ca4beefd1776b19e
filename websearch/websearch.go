// Package websearch provides a search-provider client (C4), cached and
// globally rate-limited.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/woutermans/searchllama/diskcache"
	"github.com/woutermans/searchllama/internal/metrics"
)

// ErrSearch indicates a search request failed.
var ErrSearch = errors.New("websearch: error")

// Result is a single search result.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Client searches a web-search provider for query, returning at most max
// results.
type Client interface {
	Search(ctx context.Context, query string, max int) ([]Result, error)
}

// searxResponse mirrors SearXNG's JSON search response shape.
type searxResponse struct {
	Results []Result `json:"results"`
}

// HTTPClient is a Client for a SearXNG-shaped JSON search API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates an HTTPClient targeting baseURL (e.g.
// "http://localhost:8888").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, client: &http.Client{Timeout: 20 * time.Second}}
}

// Search implements Client.
func (c *HTTPClient) Search(ctx context.Context, query string, max int) (result []Result, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.SearchLatencySeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSearch, err)
	}
	q := req.URL.Query()
	q.Set("q", query)
	q.Set("format", "json")
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", ErrSearch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: provider returned %d: %s", ErrSearch, resp.StatusCode, string(msg))
	}

	var out searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearch, err)
	}

	if max > 0 && len(out.Results) > max {
		out.Results = out.Results[:max]
	}
	return out.Results, nil
}

var _ Client = (*HTTPClient)(nil)

// CachedClient wraps a Client with a disk cache keyed on (query, max) and a
// semaphore serializing calls to the underlying provider, per spec's
// global search concurrency cap of 1.
type CachedClient struct {
	inner Client
	cache diskcache.Cache
	sem   *semaphore.Weighted
}

// NewCachedClient wraps inner with caching and a concurrency cap of 1.
func NewCachedClient(inner Client, cache diskcache.Cache) *CachedClient {
	return &CachedClient{inner: inner, cache: cache, sem: semaphore.NewWeighted(1)}
}

func searchCacheKey(query string, max int) string {
	return query + "\x00" + strconv.Itoa(max)
}

// Search implements Client.
func (c *CachedClient) Search(ctx context.Context, query string, max int) ([]Result, error) {
	key := searchCacheKey(query, max)

	if c.cache != nil {
		if blob, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			var results []Result
			if err := json.Unmarshal(blob, &results); err == nil {
				return results, nil
			}
		}
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: acquire slot: %v", ErrSearch, err)
	}
	defer c.sem.Release(1)

	results, err := c.inner.Search(ctx, query, max)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if blob, err := json.Marshal(results); err == nil {
			_ = c.cache.Put(ctx, key, blob)
		}
	}

	return results, nil
}

var _ Client = (*CachedClient)(nil)
