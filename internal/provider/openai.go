package provider

import (
	"context"
	"net/http"

	"github.com/docgate/docgate/internal/stream"
	"github.com/docgate/docgate/pkg/types"
)

// OpenAIProvider implements Provider for the OpenAI API. It speaks the
// Responses API by default and Chat Completions when the "apiMode"
// option is "chat".
type OpenAIProvider struct {
	base
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(client *http.Client) *OpenAIProvider {
	p := &OpenAIProvider{}
	p.base = newBase("openai", "OpenAI", client, Policies{
		Summarize: PartialFallback,
		Chat:      AbortErrorFirst,
		MultiFile: PartialFallback,
	}, p.build)
	return p
}

// SummarizeMultiFile implements MultiFileSummarizer.
func (p *OpenAIProvider) SummarizeMultiFile(ctx context.Context, files []types.MultiFileInput, prompt string, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error) {
	return p.summarizeMultiFile(ctx, files, prompt, cfg, onProgress)
}

func (p *OpenAIProvider) build(cfg *types.ProviderConfig, system string, turns []turn, streaming bool) (*request, error) {
	req := &request{
		Header: bearer(cfg.APIKey),
		Stream: streaming,
		Model:  cfg.Model,
	}

	var payload any
	if cfg.StringOption("apiMode", "responses") == "chat" {
		req.URL = joinURL(cfg.BaseURL, "/v1/chat/completions")
		req.Dialect = stream.ChatCompletions
		req.Extract = chatCompletionText
		payload = newChatCompletionRequest(cfg, system, turns, streaming)
	} else {
		req.URL = joinURL(cfg.BaseURL, "/v1/responses")
		req.Dialect = stream.Responses
		req.Extract = responsesText
		payload = newResponsesRequest(cfg, system, turns, streaming)
	}

	body, err := marshalPayload(payload, cfg)
	if err != nil {
		return nil, err
	}
	req.Body = body
	return req, nil
}

