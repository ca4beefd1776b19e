// Package chatrelay is a thin streaming proxy over the generative model: no
// retrieval, no caching, just token-stream framing and context echo.
package chatrelay

import (
	"context"
	"log/slog"

	"github.com/woutermans/searchllama/generation"
)

// ChannelBuffer is the chat channel's buffer size.
const ChannelBuffer = 8

// systemPrompt is fixed: chat carries no retrieval context of its own, so
// the model answers purely from message plus its prior opaque state.
const systemPrompt = ""

// Fragment is one streamed chat frame: a text delta and, if the model
// produced updated opaque context, that context (last-wins on the wire).
type Fragment struct {
	Response string  `json:"response"`
	Context  []int64 `json:"context"`
}

// Relay streams generation fragments back to the caller, carrying the
// model's opaque context blob forward turn to turn.
type Relay struct {
	gen generation.Provider
	log *slog.Logger
}

// NewRelay constructs a Relay.
func NewRelay(gen generation.Provider, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{gen: gen, log: log}
}

// Chat opens a streaming generation with message as prompt and priorContext
// as the model's prior opaque state, returning a channel of Fragments. The
// channel closes when the model's stream ends or ctx is canceled.
func (r *Relay) Chat(ctx context.Context, message string, priorContext []int64) <-chan Fragment {
	out := make(chan Fragment, ChannelBuffer)
	go r.run(ctx, message, priorContext, out)
	return out
}

func (r *Relay) run(ctx context.Context, message string, priorContext []int64, out chan Fragment) {
	defer close(out)

	fragments, errc := r.gen.GenerateStream(ctx, systemPrompt, message, priorContext)
	for frag := range fragments {
		select {
		case out <- Fragment{Response: frag.Text, Context: frag.Context}:
		case <-ctx.Done():
			return
		}
	}
	if err := <-errc; err != nil {
		r.log.Warn("chat stream ended with error", "error", err)
	}
}
