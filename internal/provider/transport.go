package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/internal/stream"
	"github.com/docgate/docgate/pkg/types"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 << 10

// request is one prepared vendor call.
type request struct {
	URL     string
	Header  http.Header
	Body    []byte
	Stream  bool
	Model   string
	// Dialect parses the streamed body; Extract reads a blocking one.
	Dialect stream.Dialect
	Extract func(gjson.Result) string
}

// buildFunc turns a resolved config and the turns of a call into a
// vendor request. It is the only part that differs between adapters.
type buildFunc func(cfg *types.ProviderConfig, system string, turns []turn, streaming bool) (*request, error)

// base carries what every HTTP adapter shares, and implements the
// Provider operations on top of the adapter's buildFunc.
type base struct {
	id           string
	name         string
	client       *http.Client
	policies     Policies
	buildRequest buildFunc
}

func newBase(id, name string, client *http.Client, policies Policies, build buildFunc) base {
	if client == nil {
		client = http.DefaultClient
	}
	return base{id: id, name: name, client: client, policies: policies, buildRequest: build}
}

// ID returns the registry identifier.
func (b *base) ID() string { return b.id }

// Name returns the display name.
func (b *base) Name() string { return b.name }

// Policies returns the partial-result policy of each operation.
func (b *base) Policies() Policies { return b.policies }

// Summarize implements Provider.
func (b *base) Summarize(ctx context.Context, req *SummarizeRequest, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	doc := newDocument(req.Content, req.IsEncoded, cfg)
	httpReq, err := b.buildRequest(cfg, "", summarizeTurns(doc, req.Prompt), cfg.Stream)
	if err != nil {
		return "", err
	}
	return b.execute(ctx, httpReq, cfg, b.policies.Summarize, onProgress)
}

// Chat implements Provider.
func (b *base) Chat(ctx context.Context, req *ChatRequest, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	doc := newDocument(req.DocumentContent, req.IsEncoded, cfg)
	system, turns, err := chatTurns(doc, req.Conversation)
	if err != nil {
		return "", err
	}
	httpReq, err := b.buildRequest(cfg, system, turns, cfg.Stream)
	if err != nil {
		return "", err
	}
	return b.execute(ctx, httpReq, cfg, b.policies.Chat, onProgress)
}

// summarizeMultiFile backs SummarizeMultiFile for the adapters whose
// vendor accepts several documents in one request.
func (b *base) summarizeMultiFile(ctx context.Context, files []types.MultiFileInput, prompt string, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	docs, err := loadFiles(files)
	if err != nil {
		return "", err
	}
	httpReq, err := b.buildRequest(cfg, "", multiFileTurns(docs, prompt), cfg.Stream)
	if err != nil {
		return "", err
	}
	return b.execute(ctx, httpReq, cfg, b.policies.MultiFile, onProgress)
}

// TestConnection implements Provider.
func (b *base) TestConnection(ctx context.Context, cfg *types.ProviderConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	httpReq, err := b.buildRequest(probeConfig(cfg), "", []turn{{Role: types.RoleUser, Text: testPrompt}}, false)
	if err != nil {
		return "", err
	}
	return b.probe(ctx, httpReq, cfg)
}

// probeConfig returns a copy of cfg limited to a minimal reply.
func probeConfig(cfg *types.ProviderConfig) *types.ProviderConfig {
	c := *cfg
	c.Stream = false
	c.MaxTokens = testMaxTokens
	c.MaxTokensEnabled = true
	return &c
}

func (b *base) send(ctx context.Context, req *request) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	return b.client.Do(httpReq)
}

// execute runs req in streaming or blocking mode and applies policy.
func (b *base) execute(ctx context.Context, req *request, cfg *types.ProviderConfig, policy PartialResultPolicy, onProgress types.ProgressFunc) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ResolveTimeout(cfg.TimeoutMS))
	defer cancel()

	logging.Debug().
		Str("provider", b.id).
		Str("model", req.Model).
		Str("url", req.URL).
		Bool("stream", req.Stream).
		Msg("Sending request")

	if req.Stream {
		return b.runStream(ctx, req, policy, onProgress)
	}
	return b.runBlocking(ctx, req, onProgress)
}

func (b *base) runStream(ctx context.Context, req *request, policy PartialResultPolicy, onProgress types.ProgressFunc) (string, error) {
	resp, err := b.send(ctx, req)
	if err != nil {
		return "", b.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", newAPIError(b.id, resp.StatusCode, body)
	}

	parser := stream.NewParser(req.Dialect, onProgress)
	var abortErr, transportErr error
	if _, err := io.Copy(parser, resp.Body); err != nil {
		if errors.Is(err, stream.ErrAborted) {
			abortErr = fromRecordError(b.id, parser.Fault())
		} else {
			transportErr = b.transportError(ctx, err)
		}
	} else {
		parser.Close()
	}

	text, err := policy.Resolve(parser.Text(), parser.ReceivedAny(), abortErr, transportErr)
	if err == nil && (abortErr != nil || transportErr != nil) {
		dropped := abortErr
		if dropped == nil {
			dropped = transportErr
		}
		logging.Warn().
			Err(dropped).
			Str("provider", b.id).
			Int("chars", len(text)).
			Msg("Stream failed after output, returning partial result")
	}
	if err != nil {
		return "", err
	}

	logging.Debug().
		Str("provider", b.id).
		Int("chars", len(text)).
		Bool("sentinel", parser.Done()).
		Msg("Stream finished")
	return text, nil
}

func (b *base) runBlocking(ctx context.Context, req *request, onProgress types.ProgressFunc) (string, error) {
	resp, err := b.send(ctx, req)
	if err != nil {
		return "", b.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", b.transportError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newAPIError(b.id, resp.StatusCode, body)
	}

	record, ok := stream.SafeParse(body)
	if !ok {
		return "", &APIError{Provider: b.id, StatusCode: resp.StatusCode, Message: "response is not valid JSON", Body: string(body)}
	}
	if record.Get("error").IsObject() {
		return "", newAPIError(b.id, resp.StatusCode, body)
	}

	text := req.Extract(record)
	if text != "" && onProgress != nil {
		onProgress(text)
	}
	return text, nil
}

// probe runs a connectivity test. Every failure becomes a
// *ConnectivityTestError carrying the request and response.
func (b *base) probe(ctx context.Context, req *request, cfg *types.ProviderConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ResolveTimeout(cfg.TimeoutMS))
	defer cancel()

	diag := &ConnectivityTestError{
		RequestURL:  req.URL,
		RequestBody: string(req.Body),
	}

	resp, err := b.send(ctx, req)
	if err != nil {
		diag.Name = "NetworkError"
		diag.Message = b.transportError(ctx, err).Error()
		return "", diag
	}
	defer resp.Body.Close()

	diag.StatusCode = resp.StatusCode
	diag.ResponseHeaders = headerMap(resp.Header)

	body, err := io.ReadAll(resp.Body)
	diag.ResponseBody = string(body)
	if err != nil {
		diag.Name = "NetworkError"
		diag.Message = b.transportError(ctx, err).Error()
		return "", diag
	}

	code, message := parseErrorEnvelope(body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		diag.Name = code
		if diag.Name == "" {
			diag.Name = fmt.Sprintf("HTTP_%d", resp.StatusCode)
		}
		diag.Message = message
		if diag.Message == "" {
			diag.Message = http.StatusText(resp.StatusCode)
		}
		return "", diag
	}

	record, ok := stream.SafeParse(body)
	if !ok {
		diag.Name = "InvalidResponse"
		diag.Message = "response is not valid JSON"
		return "", diag
	}
	if record.Get("error").IsObject() {
		diag.Name = code
		if diag.Name == "" {
			diag.Name = "VendorError"
		}
		diag.Message = message
		return "", diag
	}

	reply := req.Extract(record)
	return formatReport(b.name, req.Model, reply, body), nil
}

func (b *base) transportError(ctx context.Context, err error) error {
	// The HTTP client does not always surface the deadline as the cause.
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return &TransportError{Provider: b.id, Err: err}
}

func formatReport(name, model, reply string, body []byte) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Connection to %s succeeded.\n", name)
	fmt.Fprintf(&sb, "Model: %s\n", model)
	fmt.Fprintf(&sb, "Reply: %s\n", strings.TrimSpace(reply))
	sb.WriteString("Raw response:\n")
	sb.Write(body)
	return sb.String()
}

func bearer(key string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+key)
	return h
}
