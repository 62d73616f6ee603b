package provider

import (
	"context"
	"errors"

	"github.com/docgate/docgate/pkg/types"
)

// Provider is the contract every vendor adapter implements.
type Provider interface {
	// ID returns the provider identifier used for registry lookups.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Summarize runs a one-shot analysis of a document.
	Summarize(ctx context.Context, req *SummarizeRequest, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error)

	// Chat continues a conversation about a document. The first entry of
	// the conversation carries the original document-bound prompt.
	Chat(ctx context.Context, req *ChatRequest, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error)

	// TestConnection issues a minimal non-streaming request. On failure
	// the error is a *ConnectivityTestError.
	TestConnection(ctx context.Context, cfg *types.ProviderConfig) (string, error)
}

// MultiFileSummarizer is implemented by adapters whose vendor accepts
// several documents in one request.
type MultiFileSummarizer interface {
	SummarizeMultiFile(ctx context.Context, files []types.MultiFileInput, prompt string, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error)
}

// SummarizeRequest is the input of Provider.Summarize.
type SummarizeRequest struct {
	// Content is plain text, or base64 when IsEncoded is set.
	Content   string `json:"content"`
	IsEncoded bool   `json:"isEncoded,omitempty"`
	Prompt    string `json:"prompt"`
}

// ChatRequest is the input of Provider.Chat.
type ChatRequest struct {
	DocumentContent string                      `json:"documentContent"`
	IsEncoded       bool                        `json:"isEncoded,omitempty"`
	Conversation    []types.ConversationMessage `json:"conversation"`
}

// PartialResultPolicy decides what a failed stream returns.
type PartialResultPolicy int

const (
	// PartialFallback returns the accumulated text whenever at least one
	// delta arrived, dropping the error.
	PartialFallback PartialResultPolicy = iota
	// AbortErrorFirst raises a captured vendor abort error even after
	// deltas arrived. Transport errors still fall back to partial text.
	AbortErrorFirst
	// AlwaysFatal raises every failure.
	AlwaysFatal
)

func (p PartialResultPolicy) String() string {
	switch p {
	case PartialFallback:
		return "fallback"
	case AbortErrorFirst:
		return "abort-first"
	case AlwaysFatal:
		return "always-fatal"
	default:
		return "unknown"
	}
}

// Resolve applies the policy to the outcome of a stream. abortErr is the
// error captured from the vendor (HTTP status or in-band error record);
// transportErr is a network failure or timeout. Without any delta the
// captured abort error takes precedence over the transport error.
func (p PartialResultPolicy) Resolve(text string, receivedAny bool, abortErr, transportErr error) (string, error) {
	if abortErr == nil && transportErr == nil {
		return text, nil
	}
	primary := abortErr
	if primary == nil {
		primary = transportErr
	}

	switch p {
	case AlwaysFatal:
		return "", primary
	case AbortErrorFirst:
		if abortErr != nil {
			return "", abortErr
		}
	}
	if receivedAny {
		return text, nil
	}
	return "", primary
}

// Policies holds the partial-result policy of each operation of an adapter.
type Policies struct {
	Summarize PartialResultPolicy
	Chat      PartialResultPolicy
	MultiFile PartialResultPolicy
}

var (
	// ErrEmptyConversation is returned by Chat for an empty conversation.
	ErrEmptyConversation = errors.New("conversation is empty")

	// ErrNoFiles is returned by SummarizeMultiFile without input files.
	ErrNoFiles = errors.New("no files to summarize")
)
