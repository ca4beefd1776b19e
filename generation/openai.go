package generation

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider is a Provider backed by the OpenAI (or OpenAI-compatible)
// chat completions API. go-openai's chat API has no notion of an opaque
// context blob (that's an Ollama-specific concept), so fragments from this
// provider never carry Context; callers relying on context echo (e.g. the
// chat relay) should prefer OllamaProvider.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAIProvider using apiKey and model. If
// baseURL is non-empty, requests are sent there instead of the default
// OpenAI API.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

func (p *OpenAIProvider) messages(system, prompt string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	return msgs
}

// Generate implements Provider.
func (p *OpenAIProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: p.messages(system, prompt),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai request: %v", ErrModel, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion returned", ErrModel)
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream implements Provider.
func (p *OpenAIProvider) GenerateStream(ctx context.Context, system, prompt string, _ []int64) (<-chan Fragment, <-chan error) {
	fragments := make(chan Fragment)
	errc := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer close(errc)

		stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:    p.model,
			Messages: p.messages(system, prompt),
		})
		if err != nil {
			errc <- fmt.Errorf("%w: openai stream request: %v", ErrModel, err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				errc <- fmt.Errorf("%w: openai stream recv: %v", ErrModel, err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}

			select {
			case fragments <- Fragment{Text: resp.Choices[0].Delta.Content}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return fragments, errc
}

var _ Provider = (*OpenAIProvider)(nil)
