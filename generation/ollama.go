package generation

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ollamaGenerateRequest is the Ollama /api/generate request body.
type ollamaGenerateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	System  string `json:"system,omitempty"`
	Stream  bool   `json:"stream"`
	Context []int64 `json:"context,omitempty"`
}

// ollamaGenerateChunk is one line of Ollama's newline-delimited streaming
// response.
type ollamaGenerateChunk struct {
	Response string  `json:"response"`
	Done     bool    `json:"done"`
	Context  []int64 `json:"context,omitempty"`
}

// OllamaProvider is a Provider backed by Ollama's /api/generate endpoint.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates an OllamaProvider targeting baseURL. An empty
// model defaults to ModelName.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if model == "" {
		model = ModelName
	}
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 0}, // streaming responses have no fixed deadline
	}
}

// Generate implements Provider.
func (p *OllamaProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{Model: p.model, Prompt: prompt, System: system, Stream: false})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrModel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrModel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request: %v", ErrModel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama returned %d: %s", ErrModel, resp.StatusCode, string(msg))
	}

	var out ollamaGenerateChunk
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrModel, err)
	}
	return out.Response, nil
}

// GenerateStream implements Provider, reading Ollama's NDJSON stream one
// line per fragment.
func (p *OllamaProvider) GenerateStream(ctx context.Context, system, prompt string, priorContext []int64) (<-chan Fragment, <-chan error) {
	fragments := make(chan Fragment)
	errc := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer close(errc)

		body, err := json.Marshal(ollamaGenerateRequest{
			Model:   p.model,
			Prompt:  prompt,
			System:  system,
			Stream:  true,
			Context: priorContext,
		})
		if err != nil {
			errc <- fmt.Errorf("%w: marshal request: %v", ErrModel, err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
		if err != nil {
			errc <- fmt.Errorf("%w: build request: %v", ErrModel, err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			errc <- fmt.Errorf("%w: request: %v", ErrModel, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(resp.Body)
			errc <- fmt.Errorf("%w: ollama returned %d: %s", ErrModel, resp.StatusCode, string(msg))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk ollamaGenerateChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				errc <- fmt.Errorf("%w: decode stream chunk: %v", ErrModel, err)
				return
			}

			frag := Fragment{Text: chunk.Response}
			if len(chunk.Context) > 0 {
				frag.Context = chunk.Context
			}

			select {
			case fragments <- frag:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}

			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errc <- fmt.Errorf("%w: read stream: %v", ErrModel, err)
		}
	}()

	return fragments, errc
}

var _ Provider = (*OllamaProvider)(nil)
