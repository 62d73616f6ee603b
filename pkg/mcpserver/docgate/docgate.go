// Package docgate exposes the document gateway as MCP tools.
package docgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/docgate/docgate/internal/gateway"
	"github.com/docgate/docgate/internal/provider"
	"github.com/docgate/docgate/pkg/types"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

type tools struct {
	gw *gateway.Gateway
}

// NewServer creates an MCP server whose tools call gw. Provider
// arguments are optional and fall back to the configured default.
func NewServer(gw *gateway.Gateway) *server.MCPServer {
	s := server.NewMCPServer(
		"docgate",
		Version,
		server.WithToolCapabilities(true),
	)
	t := &tools{gw: gw}

	s.AddTool(mcp.NewTool("list_providers",
		mcp.WithDescription("Lists the LLM providers docgate can route to"),
	), t.listProviders)

	s.AddTool(mcp.NewTool("summarize",
		mcp.WithDescription("Analyzes one document with a prompt and returns the model's answer"),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Document text, or base64 when is_encoded is true"),
		),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Instruction applied to the document"),
		),
		mcp.WithBoolean("is_encoded",
			mcp.Description("Set when content is base64-encoded binary such as a PDF"),
		),
		mcp.WithString("provider",
			mcp.Description("Provider ID; the configured default when omitted"),
		),
	), t.summarize)

	s.AddTool(mcp.NewTool("chat",
		mcp.WithDescription("Continues a conversation about a document"),
		mcp.WithString("messages",
			mcp.Required(),
			mcp.Description(`JSON array of {"role":"user|assistant|system","content":"..."}; the first user message carries the document prompt`),
		),
		mcp.WithString("document",
			mcp.Description("Document text, or base64 when is_encoded is true"),
		),
		mcp.WithBoolean("is_encoded",
			mcp.Description("Set when document is base64-encoded binary"),
		),
		mcp.WithString("provider",
			mcp.Description("Provider ID; the configured default when omitted"),
		),
	), t.chat)

	s.AddTool(mcp.NewTool("summarize_files",
		mcp.WithDescription("Analyzes several local files in one request (openai, gemini, anthropic)"),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("File paths or glob patterns such as reports/**/*.pdf"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Instruction applied to the files"),
		),
		mcp.WithString("provider",
			mcp.Description("Provider ID; the configured default when omitted"),
		),
	), t.summarizeFiles)

	s.AddTool(mcp.NewTool("test_connection",
		mcp.WithDescription("Sends a minimal request to check credentials, endpoint and model"),
		mcp.WithString("provider",
			mcp.Description("Provider ID; the configured default when omitted"),
		),
	), t.testConnection)

	return s
}

func (t *tools) listProviders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := t.gw.Config()
	type entry struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Configured bool   `json:"configured"`
		Default    bool   `json:"default,omitempty"`
	}
	var out []entry
	for _, p := range t.gw.Registry().Providers() {
		_, configured := cfg.Provider[p.ID()]
		out = append(out, entry{
			ID:         p.ID(),
			Name:       p.Name(),
			Configured: configured,
			Default:    p.ID() == cfg.DefaultProvider,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (t *tools) summarize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prompt, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := t.gw.Summarize(ctx, request.GetString("provider", ""), &provider.SummarizeRequest{
		Content:   content,
		IsEncoded: request.GetBool("is_encoded", false),
		Prompt:    prompt,
	}, nil, nil)
	return result(text, err)
}

func (t *tools) chat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("messages")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var conversation []types.ConversationMessage
	if err := json.Unmarshal([]byte(raw), &conversation); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid messages: %v", err)), nil
	}

	text, err := t.gw.Chat(ctx, request.GetString("provider", ""), &provider.ChatRequest{
		DocumentContent: request.GetString("document", ""),
		IsEncoded:       request.GetBool("is_encoded", false),
		Conversation:    conversation,
	}, nil, nil)
	return result(text, err)
}

func (t *tools) summarizeFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := request.RequireStringSlice("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prompt, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	files, err := gateway.ExpandFiles(paths)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := t.gw.SummarizeMultiFile(ctx, request.GetString("provider", ""), files, prompt, nil, nil)
	return result(text, err)
}

func (t *tools) testConnection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := t.gw.TestConnection(ctx, request.GetString("provider", ""), nil)
	return result(report, err)
}

// result turns a gateway outcome into a tool result. Call failures are
// tool errors, not protocol errors; connectivity failures carry the full
// diagnostic block.
func result(text string, err error) (*mcp.CallToolResult, error) {
	if err == nil {
		return mcp.NewToolResultText(text), nil
	}
	var testErr *provider.ConnectivityTestError
	if errors.As(err, &testErr) {
		return mcp.NewToolResultError(testErr.Details()), nil
	}
	return mcp.NewToolResultError(err.Error()), nil
}
