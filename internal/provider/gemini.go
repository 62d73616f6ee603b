package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/docgate/docgate/internal/stream"
	"github.com/docgate/docgate/pkg/types"
)

// GeminiProvider implements Provider for Google Gemini.
type GeminiProvider struct {
	base
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(client *http.Client) *GeminiProvider {
	p := &GeminiProvider{}
	p.base = newBase("gemini", "Google Gemini", client, Policies{
		Summarize: PartialFallback,
		Chat:      PartialFallback,
		MultiFile: PartialFallback,
	}, p.build)
	return p
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inline_data,omitempty"`
}

type geminiBlob struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

func newGeminiRequest(cfg *types.ProviderConfig, system string, turns []turn) *geminiRequest {
	req := &geminiRequest{}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	gen := geminiGenerationConfig{
		Temperature:     cfg.TemperatureValue(),
		TopP:            cfg.TopPValue(),
		MaxOutputTokens: cfg.MaxTokensValue(),
	}
	if gen != (geminiGenerationConfig{}) {
		req.GenerationConfig = &gen
	}

	for _, t := range turns {
		role := "user"
		if t.Role == types.RoleAssistant {
			role = "model"
		}
		c := geminiContent{Role: role}
		for _, f := range t.Files {
			c.Parts = append(c.Parts, geminiPart{InlineData: &geminiBlob{MimeType: f.MimeType, Data: f.Content}})
		}
		if t.Text != "" || len(c.Parts) == 0 {
			c.Parts = append(c.Parts, geminiPart{Text: t.Text})
		}
		req.Contents = append(req.Contents, c)
	}
	return req
}

// SummarizeMultiFile implements MultiFileSummarizer.
func (p *GeminiProvider) SummarizeMultiFile(ctx context.Context, files []types.MultiFileInput, prompt string, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error) {
	return p.summarizeMultiFile(ctx, files, prompt, cfg, onProgress)
}

func (p *GeminiProvider) build(cfg *types.ProviderConfig, system string, turns []turn, streaming bool) (*request, error) {
	model := strings.TrimPrefix(cfg.Model, "models/")
	if model == "" {
		return nil, &types.ConfigError{Field: "model", Message: "model is required for Gemini"}
	}

	body, err := marshalPayload(newGeminiRequest(cfg, system, turns), cfg)
	if err != nil {
		return nil, err
	}

	endpoint := joinURL(cfg.BaseURL, "/v1beta/models/"+url.PathEscape(model))
	if streaming {
		endpoint += ":streamGenerateContent?alt=sse"
	} else {
		endpoint += ":generateContent"
	}

	header := http.Header{}
	header.Set("x-goog-api-key", cfg.APIKey)
	return &request{
		URL:     endpoint,
		Header:  header,
		Body:    body,
		Stream:  streaming,
		Model:   model,
		Dialect: stream.Gemini,
		Extract: geminiText,
	}, nil
}

func geminiText(record gjson.Result) string {
	return stream.Gemini.Extract(record)
}
