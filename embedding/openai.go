package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider is a Provider backed by the OpenAI (or OpenAI-compatible)
// embeddings API.
type OpenAIProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIProvider creates an OpenAIProvider using apiKey. If baseURL is
// non-empty, requests are sent there instead of the default OpenAI API,
// allowing any OpenAI-compatible embedding endpoint to stand in.
func NewOpenAIProvider(apiKey, baseURL string, model openai.EmbeddingModel) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Embed implements Provider.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai request: %v", ErrModel, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrModel)
	}

	vals := resp.Data[0].Embedding
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out, nil
}

var _ Provider = (*OpenAIProvider)(nil)
