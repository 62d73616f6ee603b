package provider_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockVendorServer mimics one vendor endpoint. It replays a scripted
// response and records every request it receives.
type MockVendorServer struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
	reply    MockReply
}

// RecordedRequest is one request seen by the mock.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// JSON decodes the request body.
func (r RecordedRequest) JSON() map[string]any {
	var m map[string]any
	_ = json.Unmarshal(r.Body, &m)
	return m
}

// MockReply scripts the next responses.
type MockReply struct {
	// Status defaults to 200.
	Status int
	// Body is written as-is for non-streamed replies and errors.
	Body string
	// Events are SSE lines, each written and flushed separately.
	Events []string
	// Drop closes the connection after the events, without ending the body.
	Drop bool
	// Hang keeps the stream open after the events until the client
	// goes away.
	Hang    bool
	Headers map[string]string
}

// NewMockVendorServer starts a mock vendor server.
func NewMockVendorServer() *MockVendorServer {
	m := &MockVendorServer{}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server's URL.
func (m *MockVendorServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockVendorServer) Close() {
	m.server.Close()
}

// Reply sets the scripted response.
func (m *MockVendorServer) Reply(r MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = r
}

// Requests returns the recorded requests.
func (m *MockVendorServer) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// LastRequest returns the most recent request.
func (m *MockVendorServer) LastRequest() RecordedRequest {
	reqs := m.Requests()
	if len(reqs) == 0 {
		return RecordedRequest{}
	}
	return reqs[len(reqs)-1]
}

func (m *MockVendorServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
	})
	reply := m.reply
	m.mu.Unlock()

	for k, v := range reply.Headers {
		w.Header().Set(k, v)
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}

	if len(reply.Events) == 0 || status != http.StatusOK {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply.Body)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	flusher := w.(http.Flusher)
	for _, event := range reply.Events {
		fmt.Fprintf(w, "%s\n\n", event)
		flusher.Flush()
	}

	if reply.Drop {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}

	if reply.Hang {
		select {
		case <-r.Context().Done():
		case <-time.After(30 * time.Second):
		}
	}
}

// sse builds "data: <json>" lines from JSON fragments.
func sse(records ...string) []string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = "data: " + r
	}
	return lines
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// vendorCase describes how one adapter talks to its vendor.
type vendorCase struct {
	ID string
	// BaseURL maps the mock URL to the configured base URL.
	BaseURL func(mock string) string
	Model   string
	// StreamPath is the request path of a streamed call.
	StreamPath  string
	StreamQuery string
	// BlockingPath is the request path of a non-streamed call.
	BlockingPath string
	// Deltas renders text deltas as vendor records.
	Deltas func(texts ...string) []string
	// End is the closing record set, if any.
	End []string
	// Fault is an in-band error record.
	Fault string
	// FaultCode is the code the fault classifies to.
	FaultCode string
	// Blocking is a non-streamed success body replying "pong".
	Blocking string
	// ErrorBody is a vendor error envelope with code FaultCode.
	ErrorBody string
	// AuthHeader and AuthValue identify the credential header.
	AuthHeader string
	AuthValue  func(key string) string
	// ChatPolicy is the documented chat partial-result policy.
	ChatPolicy string
	MultiFile  bool
}

func responsesDeltas(texts ...string) []string {
	var records []string
	for _, t := range texts {
		records = append(records, `{"type":"response.output_text.delta","delta":`+jsonString(t)+`}`)
	}
	return sse(records...)
}

func chatDeltas(texts ...string) []string {
	var records []string
	for _, t := range texts {
		records = append(records, `{"choices":[{"index":0,"delta":{"content":`+jsonString(t)+`}}]}`)
	}
	return sse(records...)
}

func geminiDeltas(texts ...string) []string {
	var records []string
	for _, t := range texts {
		records = append(records, `{"candidates":[{"content":{"parts":[{"text":`+jsonString(t)+`}],"role":"model"}}]}`)
	}
	return sse(records...)
}

func anthropicDeltas(texts ...string) []string {
	lines := []string{
		"event: message_start\n" + `data: {"type":"message_start","message":{"id":"msg_1","content":[]}}`,
		"event: content_block_start\n" + `data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
	}
	for _, t := range texts {
		lines = append(lines, "event: content_block_delta\n"+
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":`+jsonString(t)+`}}`)
	}
	return lines
}

func arkDeltas(texts ...string) []string {
	lines := responsesDeltas(texts...)
	full := jsonString(strings.Join(texts, ""))
	return append(lines, sse(
		`{"type":"response.output_text.done","text":`+full+`}`,
		`{"type":"response.content_part.done","part":{"type":"output_text","text":`+full+`}}`,
	)...)
}

const responsesBlocking = `{"id":"resp_1","object":"response","output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"pong"}]}]}`

var vendorCases = []vendorCase{
	{
		ID:           "openai",
		BaseURL:      func(mock string) string { return mock },
		Model:        "gpt-4o-mini",
		StreamPath:   "/v1/responses",
		BlockingPath: "/v1/responses",
		Deltas:       responsesDeltas,
		End:          []string{"data: [DONE]"},
		Fault:        `data: {"type":"error","code":"server_error","message":"boom"}`,
		FaultCode:    "server_error",
		Blocking:     responsesBlocking,
		ErrorBody:    `{"error":{"message":"boom","type":"server_error","param":null,"code":"server_error"}}`,
		AuthHeader:   "Authorization",
		AuthValue:    func(key string) string { return "Bearer " + key },
		ChatPolicy:   "abort-first",
		MultiFile:    true,
	},
	{
		ID:           "openai-compatible",
		BaseURL:      func(mock string) string { return mock + "/api/v3/chat/completions" },
		Model:        "relay-model",
		StreamPath:   "/api/v3/chat/completions",
		BlockingPath: "/api/v3/chat/completions",
		Deltas:       chatDeltas,
		End:          []string{"data: [DONE]"},
		Fault:        `data: {"error":{"code":"server_error","message":"boom"}}`,
		FaultCode:    "server_error",
		Blocking:     `{"choices":[{"index":0,"message":{"role":"assistant","content":"pong"}}]}`,
		ErrorBody:    `{"error":{"message":"boom","code":"server_error"}}`,
		AuthHeader:   "Authorization",
		AuthValue:    func(key string) string { return "Bearer " + key },
		ChatPolicy:   "abort-first",
	},
	{
		ID:           "gemini",
		BaseURL:      func(mock string) string { return mock },
		Model:        "gemini-2.0-flash",
		StreamPath:   "/v1beta/models/gemini-2.0-flash:streamGenerateContent",
		StreamQuery:  "alt=sse",
		BlockingPath: "/v1beta/models/gemini-2.0-flash:generateContent",
		Deltas:       geminiDeltas,
		Fault:        `data: {"error":{"code":500,"message":"boom","status":"INTERNAL"}}`,
		FaultCode:    "INTERNAL",
		Blocking:     `{"candidates":[{"content":{"parts":[{"text":"pong"}],"role":"model"},"finishReason":"STOP"}]}`,
		ErrorBody:    `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`,
		AuthHeader:   "X-Goog-Api-Key",
		AuthValue:    func(key string) string { return key },
		ChatPolicy:   "fallback",
		MultiFile:    true,
	},
	{
		ID:           "anthropic",
		BaseURL:      func(mock string) string { return mock + "/" },
		Model:        "claude-sonnet-4-20250514",
		StreamPath:   "/v1/messages",
		BlockingPath: "/v1/messages",
		Deltas:       anthropicDeltas,
		End: []string{
			"event: content_block_stop\n" + `data: {"type":"content_block_stop","index":0}`,
			"event: message_stop\n" + `data: {"type":"message_stop"}`,
		},
		Fault:      "event: error\n" + `data: {"type":"error","error":{"type":"api_error","message":"boom"}}`,
		FaultCode:  "api_error",
		Blocking:   `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"pong"}]}`,
		ErrorBody:  `{"type":"error","error":{"type":"api_error","message":"boom"}}`,
		AuthHeader: "X-Api-Key",
		AuthValue:  func(key string) string { return key },
		ChatPolicy: "fallback",
		MultiFile:  true,
	},
	{
		ID:           "ark",
		BaseURL:      func(mock string) string { return mock + "/api/v3" },
		Model:        "ep-20250101-test",
		StreamPath:   "/api/v3/responses",
		BlockingPath: "/api/v3/responses",
		Deltas:       arkDeltas,
		End:          []string{"data: [DONE]"},
		Fault:        `data: {"type":"response.failed","response":{"error":{"code":"server_error","message":"boom"}}}`,
		FaultCode:    "server_error",
		Blocking:     responsesBlocking,
		ErrorBody:    `{"error":{"code":"server_error","message":"boom","type":"ServerError"}}`,
		AuthHeader:   "Authorization",
		AuthValue:    func(key string) string { return "Bearer " + key },
		ChatPolicy:   "abort-first",
	},
}
