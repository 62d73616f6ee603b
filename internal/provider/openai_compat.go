package provider

import (
	"net/http"

	"github.com/docgate/docgate/internal/stream"
	"github.com/docgate/docgate/pkg/types"
)

// OpenAICompatibleProvider talks Chat Completions to third-party relays.
// BaseURL is the full endpoint and is used as-is.
type OpenAICompatibleProvider struct {
	base
}

// NewOpenAICompatibleProvider creates a provider for OpenAI-compatible relays.
func NewOpenAICompatibleProvider(client *http.Client) *OpenAICompatibleProvider {
	p := &OpenAICompatibleProvider{}
	p.base = newBase("openai-compatible", "OpenAI Compatible", client, Policies{
		Summarize: PartialFallback,
		Chat:      AbortErrorFirst,
	}, p.build)
	return p
}

func (p *OpenAICompatibleProvider) build(cfg *types.ProviderConfig, system string, turns []turn, streaming bool) (*request, error) {
	body, err := marshalPayload(newChatCompletionRequest(cfg, system, turns, streaming), cfg)
	if err != nil {
		return nil, err
	}
	return &request{
		URL:     cfg.BaseURL,
		Header:  bearer(cfg.APIKey),
		Body:    body,
		Stream:  streaming,
		Model:   cfg.Model,
		Dialect: stream.ChatCompletions,
		Extract: chatCompletionText,
	}, nil
}
