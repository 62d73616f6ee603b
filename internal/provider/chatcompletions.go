package provider

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/docgate/docgate/pkg/types"
)

// chatCompletionRequest is the Chat Completions payload.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

// chatMessage serializes its content as a plain string, or as a parts
// array when files are attached.
type chatMessage struct {
	Role  string
	Text  string
	Parts []chatPart
}

type chatPart struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	File *chatFile `json:"file,omitempty"`
}

type chatFile struct {
	Filename string `json:"filename,omitempty"`
	FileData string `json:"file_data"`
}

func (m chatMessage) MarshalJSON() ([]byte, error) {
	if len(m.Parts) == 0 {
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{m.Role, m.Text})
	}
	parts := m.Parts
	if m.Text != "" {
		parts = append(parts[:len(parts):len(parts)], chatPart{Type: "text", Text: m.Text})
	}
	return json.Marshal(struct {
		Role    string     `json:"role"`
		Content []chatPart `json:"content"`
	}{m.Role, parts})
}

func newChatCompletionRequest(cfg *types.ProviderConfig, system string, turns []turn, streaming bool) *chatCompletionRequest {
	req := &chatCompletionRequest{
		Model:       cfg.Model,
		Stream:      streaming,
		Temperature: cfg.TemperatureValue(),
		TopP:        cfg.TopPValue(),
		MaxTokens:   cfg.MaxTokensValue(),
	}
	if system != "" {
		req.Messages = append(req.Messages, chatMessage{Role: string(types.RoleSystem), Text: system})
	}
	for _, t := range turns {
		msg := chatMessage{Role: string(t.Role), Text: t.Text}
		for _, f := range t.Files {
			msg.Parts = append(msg.Parts, chatPart{
				Type: "file",
				File: &chatFile{Filename: f.FileName, FileData: f.DataURL()},
			})
		}
		req.Messages = append(req.Messages, msg)
	}
	return req
}

func chatCompletionText(record gjson.Result) string {
	return record.Get("choices.0.message.content").String()
}
