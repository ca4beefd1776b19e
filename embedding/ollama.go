package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ollamaEmbedRequest is the Ollama /api/embeddings request body.
type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaEmbedResponse is the Ollama /api/embeddings response body.
type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// OllamaProvider is a Provider backed by a local or remote Ollama instance's
// /api/embeddings endpoint.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates an OllamaProvider targeting baseURL (e.g.
// "http://localhost:11434"). An empty model defaults to ModelName.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if model == "" {
		model = ModelName
	}
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Embed implements Provider.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrModel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrModel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", ErrModel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama returned %d: %s", ErrModel, resp.StatusCode, string(msg))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrModel, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrModel)
	}

	return out.Embedding, nil
}

var _ Provider = (*OllamaProvider)(nil)
