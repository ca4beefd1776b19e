// Package generation provides text-generation clients (the generative
// model side of C2's sibling model backend): one-shot generation for query
// expansion and streaming generation for the summarizer and chat relay.
package generation

import (
	"context"
	"errors"
)

// ModelName is the compile-time generation model constant (spec §6).
const ModelName = "llama3.1:latest"

// ErrModel indicates a generation backend call failed.
var ErrModel = errors.New("generation: model error")

// Fragment is one piece of a streamed generation: a text delta and,
// optionally, the model's opaque context blob. A fragment carrying Context
// supersedes any prior context (last-wins).
type Fragment struct {
	Text    string
	Context []int64
}

// Provider is the generative-model external collaborator.
type Provider interface {
	// Generate performs a one-shot generation (no streaming, no context
	// carried in or out), used for query expansion.
	Generate(ctx context.Context, system, prompt string) (string, error)

	// GenerateStream streams fragments for prompt, optionally resuming
	// from a prior opaque context. Fragments are delivered on the
	// returned channel; the channel is closed when generation completes
	// or ctx is canceled. Errors are delivered via the returned error
	// channel and close it.
	GenerateStream(ctx context.Context, system, prompt string, priorContext []int64) (<-chan Fragment, <-chan error)
}
