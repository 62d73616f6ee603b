package provider

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"github.com/docgate/docgate/pkg/types"
)

const (
	// DefaultTimeout applies when a config carries no timeout.
	DefaultTimeout = 120 * time.Second
	// MinTimeout is the floor for configured timeouts.
	MinTimeout = 10 * time.Second

	defaultMimeType = "application/pdf"
	defaultFileName = "document.pdf"

	// testPrompt and testMaxTokens shape connectivity-test requests.
	testPrompt    = "ping"
	testMaxTokens = 16
)

// ResolveTimeout converts a configured timeout in milliseconds into a
// duration, applying the default for 0 and the floor for small values.
func ResolveTimeout(ms int) time.Duration {
	if ms <= 0 {
		return DefaultTimeout
	}
	d := time.Duration(ms) * time.Millisecond
	if d < MinTimeout {
		return MinTimeout
	}
	return d
}

// marshalPayload serializes a vendor payload and merges the "extraBody"
// entries of the options bag into it.
func marshalPayload(payload any, cfg *types.ProviderConfig) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	extra := cfg.MapOption("extraBody")
	if len(extra) == 0 {
		return body, nil
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		body, err = sjson.SetBytes(body, k, extra[k])
		if err != nil {
			return nil, fmt.Errorf("applying option %q: %w", k, err)
		}
	}
	return body, nil
}

// document is the payload a request is about.
type document struct {
	Content  string
	Encoded  bool
	MimeType string
	FileName string
}

func newDocument(content string, encoded bool, cfg *types.ProviderConfig) document {
	return document{
		Content:  content,
		Encoded:  encoded,
		MimeType: cfg.StringOption("mimeType", defaultMimeType),
		FileName: cfg.StringOption("fileName", defaultFileName),
	}
}

// DataURL returns the base64 payload as a data: URL.
func (d document) DataURL() string {
	return "data:" + d.MimeType + ";base64," + d.Content
}

// WithPrompt embeds raw text content after the prompt.
func (d document) WithPrompt(prompt string) string {
	if d.Content == "" {
		return prompt
	}
	if prompt == "" {
		return d.Content
	}
	return prompt + "\n\n" + d.Content
}

// loadFiles resolves each input to a base64 document.
func loadFiles(files []types.MultiFileInput) ([]document, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	docs := make([]document, 0, len(files))
	for _, f := range files {
		payload := f.Payload
		if payload == "" {
			data, err := os.ReadFile(f.Path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f.Name(), err)
			}
			payload = base64.StdEncoding.EncodeToString(data)
		}
		docs = append(docs, document{
			Content:  payload,
			Encoded:  true,
			MimeType: mimeTypeOf(f.Path),
			FileName: filepath.Base(f.Name()),
		})
	}
	return docs, nil
}

func mimeTypeOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return defaultMimeType
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return defaultMimeType
}

// splitConversation moves system turns out of the conversation. The
// remaining turns keep their order.
func splitConversation(conversation []types.ConversationMessage) (string, []types.ConversationMessage) {
	var system []string
	turns := make([]types.ConversationMessage, 0, len(conversation))
	for _, m := range conversation {
		if m.Role == types.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}

// joinURL appends path to base, tolerating a trailing slash and a base
// that already ends with the first path segment (".../v1").
func joinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if i := strings.Index(path[1:], "/"); i > 0 {
		if first := path[:i+1]; strings.HasSuffix(base, first) {
			return base + path[i+1:]
		}
	}
	return base + path
}

// headerMap flattens response headers for diagnostics.
func headerMap(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}
