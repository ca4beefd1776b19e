package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/woutermans/searchllama/diskcache"
	"github.com/woutermans/searchllama/internal/metrics"
	"github.com/woutermans/searchllama/vector"
)

// DefaultLRUSize is the number of recent embeddings kept in the in-process
// cache ahead of the disk cache.
const DefaultLRUSize = 4096

// Service embeds text through a Provider, caching results in-process (LRU)
// and on disk so repeated or restarted runs never re-embed identical text.
type Service struct {
	provider Provider
	cache    diskcache.Cache
	lru      *lru.Cache[string, vector.Embedding]
	log      *slog.Logger
}

// NewService creates a Service. cache may be nil to disable the disk tier.
func NewService(provider Provider, cache diskcache.Cache, log *slog.Logger) (*Service, error) {
	l, err := lru.New[string, vector.Embedding](DefaultLRUSize)
	if err != nil {
		return nil, fmt.Errorf("embedding: create lru: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{provider: provider, cache: cache, lru: l, log: log}, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed returns the embedding for text, using the exact text as the cache
// key (§5: caching is keyed by exact text for embeddings).
func (s *Service) Embed(ctx context.Context, text string) (vector.Embedding, error) {
	start := time.Now()
	key := cacheKey(text)

	if emb, ok := s.lru.Get(key); ok {
		metrics.EmbedLatencySeconds.WithLabelValues("lru_hit").Observe(time.Since(start).Seconds())
		return emb, nil
	}

	if s.cache != nil {
		if blob, ok, err := s.cache.Get(ctx, key); err != nil {
			s.log.Warn("embedding cache read failed", "error", err)
		} else if ok {
			emb, err := vector.Decode(blob)
			if err != nil {
				s.log.Warn("embedding cache blob corrupt, recomputing", "error", err)
			} else {
				s.lru.Add(key, emb)
				metrics.EmbedLatencySeconds.WithLabelValues("disk_hit").Observe(time.Since(start).Seconds())
				return emb, nil
			}
		}
	}

	raw, err := s.provider.Embed(ctx, text)
	if err != nil {
		metrics.EmbedLatencySeconds.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}
	emb := vector.Embedding(raw)

	s.lru.Add(key, emb)
	if s.cache != nil {
		if err := s.cache.Put(ctx, key, vector.Encode(emb)); err != nil {
			s.log.Warn("embedding cache write failed", "error", err)
		}
	}

	metrics.EmbedLatencySeconds.WithLabelValues("miss").Observe(time.Since(start).Seconds())
	return emb, nil
}

// EmbedLarge chunks text per ChunkText and embeds each chunk independently,
// returning the chunks alongside their embeddings in order.
func (s *Service) EmbedLarge(ctx context.Context, text string, chunkSize int) ([]string, []vector.Embedding, error) {
	chunks := ChunkText(text, chunkSize)
	embs := make([]vector.Embedding, len(chunks))

	for i, chunk := range chunks {
		emb, err := s.Embed(ctx, chunk)
		if err != nil {
			return nil, nil, fmt.Errorf("embed chunk %d/%d: %w", i+1, len(chunks), err)
		}
		embs[i] = emb
	}

	return chunks, embs, nil
}
