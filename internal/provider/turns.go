package provider

import (
	"github.com/docgate/docgate/pkg/types"
)

// turn is a vendor-neutral message. Files holds base64 documents
// attached to it; raw text documents are already merged into Text.
type turn struct {
	Role  types.Role
	Text  string
	Files []document
}

// summarizeTurns builds the single user turn of a summarize call.
func summarizeTurns(doc document, prompt string) []turn {
	if doc.Encoded {
		return []turn{{Role: types.RoleUser, Text: prompt, Files: []document{doc}}}
	}
	return []turn{{Role: types.RoleUser, Text: doc.WithPrompt(prompt)}}
}

// multiFileTurns builds the single user turn of a multi-file call.
func multiFileTurns(docs []document, prompt string) []turn {
	return []turn{{Role: types.RoleUser, Text: prompt, Files: docs}}
}

// chatTurns splits system instructions out of the conversation and
// attaches the document to the first user turn.
func chatTurns(doc document, conversation []types.ConversationMessage) (string, []turn, error) {
	system, rest := splitConversation(conversation)
	if len(rest) == 0 {
		return "", nil, ErrEmptyConversation
	}

	turns := make([]turn, 0, len(rest))
	attached := doc.Content == ""
	for _, m := range rest {
		t := turn{Role: m.Role, Text: m.Content}
		if !attached && m.Role == types.RoleUser {
			if doc.Encoded {
				t.Files = []document{doc}
			} else {
				t.Text = doc.WithPrompt(m.Content)
			}
			attached = true
		}
		turns = append(turns, t)
	}
	return system, turns, nil
}
