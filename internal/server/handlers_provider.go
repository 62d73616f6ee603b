package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/docgate/docgate/internal/provider"
	"github.com/docgate/docgate/pkg/types"
)

// SummarizeRequest is the body of POST /provider/{providerID}/summarize.
type SummarizeRequest struct {
	Content   string                `json:"content"`
	IsEncoded bool                  `json:"isEncoded,omitempty"`
	Prompt    string                `json:"prompt"`
	Config    *types.ProviderConfig `json:"config,omitempty"`
}

// ChatRequest is the body of POST /provider/{providerID}/chat.
type ChatRequest struct {
	DocumentContent string                      `json:"documentContent"`
	IsEncoded       bool                        `json:"isEncoded,omitempty"`
	Conversation    []types.ConversationMessage `json:"conversation"`
	Config          *types.ProviderConfig       `json:"config,omitempty"`
}

// SummarizeFilesRequest is the body of POST /provider/{providerID}/summarize-files.
type SummarizeFilesRequest struct {
	Files  []types.MultiFileInput `json:"files"`
	Prompt string                 `json:"prompt"`
	Config *types.ProviderConfig  `json:"config,omitempty"`
}

// TestRequest is the body of POST /provider/{providerID}/test.
type TestRequest struct {
	Config *types.ProviderConfig `json:"config,omitempty"`
}

// ProviderInfo describes one registered provider.
type ProviderInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	MultiFile  bool   `json:"multiFile"`
}

// TextResponse is the non-streaming result of a document call.
type TextResponse struct {
	Text string `json:"text"`
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listProviders handles GET /provider
func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	appCfg := s.gateway.Config()

	providers := make([]ProviderInfo, 0)
	for _, p := range s.gateway.Registry().Providers() {
		_, configured := appCfg.Provider[p.ID()]
		_, multi := p.(provider.MultiFileSummarizer)
		providers = append(providers, ProviderInfo{
			ID:         p.ID(),
			Name:       p.Name(),
			Configured: configured,
			MultiFile:  multi,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"providers": providers,
		"default":   appCfg.DefaultProvider,
	})
}

// summarize handles POST /provider/{providerID}/summarize
func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.respond(w, r, func(onProgress types.ProgressFunc) (string, error) {
		return s.gateway.Summarize(r.Context(), chi.URLParam(r, "providerID"), &provider.SummarizeRequest{
			Content:   req.Content,
			IsEncoded: req.IsEncoded,
			Prompt:    req.Prompt,
		}, req.Config, onProgress)
	})
}

// chat handles POST /provider/{providerID}/chat
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Conversation) == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "conversation is required")
		return
	}

	s.respond(w, r, func(onProgress types.ProgressFunc) (string, error) {
		return s.gateway.Chat(r.Context(), chi.URLParam(r, "providerID"), &provider.ChatRequest{
			DocumentContent: req.DocumentContent,
			IsEncoded:       req.IsEncoded,
			Conversation:    req.Conversation,
		}, req.Config, onProgress)
	})
}

// summarizeFiles handles POST /provider/{providerID}/summarize-files
func (s *Server) summarizeFiles(w http.ResponseWriter, r *http.Request) {
	var req SummarizeFilesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "files are required")
		return
	}
	for _, f := range req.Files {
		// Only inline payloads: the server never reads its own disk.
		if f.Payload == "" {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "file "+f.Name()+" has no payload")
			return
		}
	}

	s.respond(w, r, func(onProgress types.ProgressFunc) (string, error) {
		return s.gateway.SummarizeMultiFile(r.Context(), chi.URLParam(r, "providerID"), req.Files, req.Prompt, req.Config, onProgress)
	})
}

// testConnection handles POST /provider/{providerID}/test
func (s *Server) testConnection(w http.ResponseWriter, r *http.Request) {
	var req TestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	report, err := s.gateway.TestConnection(r.Context(), chi.URLParam(r, "providerID"), req.Config)
	if err != nil {
		writeCallError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"report": report})
}

// respond runs call and writes its result. Clients that accept
// text/event-stream get each delta as an SSE "delta" record followed by
// "done" or "error"; everyone else gets a single JSON body.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, call func(types.ProgressFunc) (string, error)) {
	if !wantsStream(r) {
		text, err := call(nil)
		if err != nil {
			writeCallError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, TextResponse{Text: text})
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	sse.start()

	text, err := call(func(delta string) {
		sse.writeEvent("delta", map[string]string{"delta": delta})
	})
	if err != nil {
		_, detail := classify(err)
		sse.writeEvent("error", ErrorResponse{Error: detail})
		return
	}
	sse.writeEvent("done", TextResponse{Text: text})
}

func wantsStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return false
	}
	return true
}
