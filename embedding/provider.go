package embedding

import (
	"context"
	"errors"
)

// ModelName is the compile-time embedding model identifier, per spec §6.
const ModelName = "nomic-embed-text:latest"

// ErrModel indicates the embedding backend failed to produce a vector.
var ErrModel = errors.New("embedding: model error")

// Provider produces an embedding vector for a single text. Implementations
// talk to whatever backend actually hosts the embedding model; the service
// built on top of a Provider never knows which one it is.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
