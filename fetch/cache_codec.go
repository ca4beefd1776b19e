package fetch

import (
	"encoding/json"
	"fmt"
)

// encodeCachedPage serializes a cachedPage for disk storage. Embeddings are
// recomputed on cache hits rather than stored, keeping the cached payload
// small and independent of the embedding model in use at cache-write time.
func encodeCachedPage(p cachedPage) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: encode cached page: %v", ErrFetch, err)
	}
	return b, nil
}

func decodeCachedPage(blob []byte) (cachedPage, error) {
	var p cachedPage
	if err := json.Unmarshal(blob, &p); err != nil {
		return cachedPage{}, fmt.Errorf("%w: decode cached page: %v", ErrFetch, err)
	}
	return p, nil
}
