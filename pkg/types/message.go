package types

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is one turn of a multi-turn conversation.
// Index 0 of a conversation is the first user turn, which carries the
// document-bound prompt.
type ConversationMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ProgressFunc receives text increments in arrival order. It is never
// called concurrently for a single call.
type ProgressFunc func(delta string)

// MultiFileInput is one document of a multi-file request.
type MultiFileInput struct {
	Path        string `json:"path"`
	DisplayName string `json:"displayName,omitempty"`
	// Payload is the base64-encoded document. When empty the file at
	// Path is read and encoded.
	Payload string `json:"payload,omitempty"`
}

// Name returns the display name, falling back to the path.
func (f MultiFileInput) Name() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.Path
}
