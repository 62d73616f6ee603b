package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/docgate/docgate/internal/stream"
	"github.com/docgate/docgate/pkg/types"
)

const (
	// AnthropicVersion is sent in the anthropic-version header.
	AnthropicVersion = "2023-06-01"
	// DefaultAnthropicMaxTokens applies when the config leaves max tokens off.
	DefaultAnthropicMaxTokens = 4096
)

// AnthropicProvider implements Provider for Anthropic Claude models.
type AnthropicProvider struct {
	base
	maxTokens int
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(client *http.Client) *AnthropicProvider {
	p := &AnthropicProvider{maxTokens: DefaultAnthropicMaxTokens}
	p.base = newBase("anthropic", "Anthropic", client, Policies{
		Summarize: PartialFallback,
		Chat:      PartialFallback,
		MultiFile: PartialFallback,
	}, p.build)
	return p
}

type messagesRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Stream      bool               `json:"stream,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicBlock struct {
	// Type is text or document.
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// newMessagesRequest builds a Messages payload. max_tokens is mandatory
// for this API, so a non-positive value is a configuration error.
func newMessagesRequest(cfg *types.ProviderConfig, maxTokens int, system string, turns []turn, streaming bool) (*messagesRequest, error) {
	if maxTokens <= 0 {
		return nil, &types.ConfigError{Field: "maxTokens", Message: "must be positive for Anthropic"}
	}
	req := &messagesRequest{
		Model:       cfg.Model,
		MaxTokens:   maxTokens,
		System:      system,
		Stream:      streaming,
		Temperature: cfg.TemperatureValue(),
		TopP:        cfg.TopPValue(),
	}
	for _, t := range turns {
		msg := anthropicMessage{Role: string(t.Role)}
		for _, f := range t.Files {
			msg.Content = append(msg.Content, anthropicBlock{
				Type:   "document",
				Source: &anthropicSource{Type: "base64", MediaType: f.MimeType, Data: f.Content},
			})
		}
		if t.Text != "" || len(msg.Content) == 0 {
			msg.Content = append(msg.Content, anthropicBlock{Type: "text", Text: t.Text})
		}
		req.Messages = append(req.Messages, msg)
	}
	return req, nil
}

// SummarizeMultiFile implements MultiFileSummarizer.
func (p *AnthropicProvider) SummarizeMultiFile(ctx context.Context, files []types.MultiFileInput, prompt string, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error) {
	return p.summarizeMultiFile(ctx, files, prompt, cfg, onProgress)
}

func (p *AnthropicProvider) build(cfg *types.ProviderConfig, system string, turns []turn, streaming bool) (*request, error) {
	maxTokens := p.maxTokens
	if v := cfg.MaxTokensValue(); v != nil {
		maxTokens = *v
	}
	payload, err := newMessagesRequest(cfg, maxTokens, system, turns, streaming)
	if err != nil {
		return nil, err
	}
	body, err := marshalPayload(payload, cfg)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("x-api-key", cfg.APIKey)
	header.Set("anthropic-version", AnthropicVersion)
	return &request{
		URL:     joinURL(cfg.BaseURL, "/v1/messages"),
		Header:  header,
		Body:    body,
		Stream:  streaming,
		Model:   cfg.Model,
		Dialect: stream.Anthropic,
		Extract: anthropicText,
	}, nil
}

func anthropicText(record gjson.Result) string {
	var b strings.Builder
	record.Get("content").ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "text" {
			b.WriteString(block.Get("text").String())
		}
		return true
	})
	return b.String()
}
