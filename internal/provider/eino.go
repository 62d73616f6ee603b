package provider

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/docgate/docgate/pkg/types"
)

// ChatModel exposes a Provider as an Eino chat model so it can be used
// in Eino chains and graphs.
type ChatModel struct {
	provider Provider
	config   types.ProviderConfig

	document  string
	isEncoded bool
}

var _ model.BaseChatModel = (*ChatModel)(nil)

// NewChatModel wraps p. cfg is copied; Eino call options override its
// sampling settings per call.
func NewChatModel(p Provider, cfg types.ProviderConfig) *ChatModel {
	return &ChatModel{provider: p, config: cfg}
}

// WithDocument returns a copy of m whose calls are about content. With
// encoded set, content is base64.
func (m *ChatModel) WithDocument(content string, encoded bool) *ChatModel {
	c := *m
	c.document = content
	c.isEncoded = encoded
	return &c
}

func (m *ChatModel) request(input []*schema.Message) *ChatRequest {
	return &ChatRequest{
		DocumentContent: m.document,
		IsEncoded:       m.isEncoded,
		Conversation:    toConversation(input),
	}
}

// Generate runs a blocking chat call.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	cfg := m.callConfig(false, opts)
	text, err := m.provider.Chat(ctx, m.request(input), cfg, nil)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

// Stream runs a streaming chat call. Deltas arrive as assistant message
// chunks; a failure is delivered as the last item of the stream.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	cfg := m.callConfig(true, opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	req := m.request(input)

	sr, sw := schema.Pipe[*schema.Message](16)
	go func() {
		defer sw.Close()
		_, err := m.provider.Chat(ctx, req, cfg, func(delta string) {
			sw.Send(schema.AssistantMessage(delta, nil), nil)
		})
		if err != nil {
			sw.Send(nil, err)
		}
	}()
	return sr, nil
}

func (m *ChatModel) callConfig(streaming bool, opts []model.Option) *types.ProviderConfig {
	cfg := m.config
	cfg.Stream = streaming

	options := model.GetCommonOptions(&model.Options{}, opts...)
	if options.Model != nil && *options.Model != "" {
		cfg.Model = *options.Model
	}
	if options.Temperature != nil {
		cfg.Temperature = float64(*options.Temperature)
		cfg.TemperatureEnabled = true
	}
	if options.TopP != nil {
		cfg.TopP = float64(*options.TopP)
		cfg.TopPEnabled = true
	}
	if options.MaxTokens != nil {
		cfg.MaxTokens = *options.MaxTokens
		cfg.MaxTokensEnabled = true
	}
	return &cfg
}

func toConversation(input []*schema.Message) []types.ConversationMessage {
	conversation := make([]types.ConversationMessage, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		var role types.Role
		switch msg.Role {
		case schema.System:
			role = types.RoleSystem
		case schema.Assistant:
			role = types.RoleAssistant
		case schema.User:
			role = types.RoleUser
		default:
			// Tool results have no slot in a document conversation.
			continue
		}
		conversation = append(conversation, types.ConversationMessage{Role: role, Content: msg.Content})
	}
	return conversation
}
