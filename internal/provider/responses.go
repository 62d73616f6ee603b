package provider

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/docgate/docgate/pkg/types"
)

// responsesRequest is the Responses API payload, shared by OpenAI and Ark.
type responsesRequest struct {
	Model           string           `json:"model"`
	Instructions    string           `json:"instructions,omitempty"`
	Input           []responsesInput `json:"input"`
	Stream          bool             `json:"stream,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	TopP            *float64         `json:"top_p,omitempty"`
	MaxOutputTokens *int             `json:"max_output_tokens,omitempty"`
}

type responsesInput struct {
	Role    string             `json:"role"`
	Content []responsesContent `json:"content"`
}

type responsesContent struct {
	// Type is input_text, output_text or input_file.
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Filename string `json:"filename,omitempty"`
	FileData string `json:"file_data,omitempty"`
}

func newResponsesRequest(cfg *types.ProviderConfig, system string, turns []turn, streaming bool) *responsesRequest {
	req := &responsesRequest{
		Model:           cfg.Model,
		Instructions:    system,
		Stream:          streaming,
		Temperature:     cfg.TemperatureValue(),
		TopP:            cfg.TopPValue(),
		MaxOutputTokens: cfg.MaxTokensValue(),
	}
	for _, t := range turns {
		textType := "input_text"
		if t.Role == types.RoleAssistant {
			textType = "output_text"
		}
		in := responsesInput{Role: string(t.Role)}
		for _, f := range t.Files {
			in.Content = append(in.Content, responsesContent{
				Type:     "input_file",
				Filename: f.FileName,
				FileData: f.DataURL(),
			})
		}
		if t.Text != "" || len(in.Content) == 0 {
			in.Content = append(in.Content, responsesContent{Type: textType, Text: t.Text})
		}
		req.Input = append(req.Input, in)
	}
	return req
}

// responsesText reads the reply of a non-streamed Responses call.
func responsesText(record gjson.Result) string {
	if s := record.Get("output_text"); s.Type == gjson.String {
		return s.String()
	}
	var b strings.Builder
	record.Get("output").ForEach(func(_, item gjson.Result) bool {
		item.Get("content").ForEach(func(_, part gjson.Result) bool {
			if part.Get("type").String() == "output_text" {
				b.WriteString(part.Get("text").String())
			}
			return true
		})
		return true
	})
	return b.String()
}
