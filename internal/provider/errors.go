package provider

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/docgate/docgate/internal/stream"
	"github.com/docgate/docgate/pkg/types"
	"github.com/tidwall/gjson"
)

// ErrProviderNotFound is returned when a provider ID is not registered.
// An unknown provider is a configuration error, so it also matches
// types.ErrConfiguration.
var ErrProviderNotFound error = providerNotFound{}

type providerNotFound struct{}

func (providerNotFound) Error() string { return "provider not found" }

func (providerNotFound) Is(target error) bool { return target == types.ErrConfiguration }

// APIError is a vendor-reported failure: a non-2xx response or an error
// record inside the stream.
type APIError struct {
	Provider   string
	StatusCode int
	// Code is the vendor error code or type, when the body carried one.
	Code    string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(": ")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "HTTP %d", e.StatusCode)
	} else {
		b.WriteString("stream error")
	}
	if e.Code != "" {
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	msg := e.Message
	if msg == "" && e.StatusCode != 0 {
		msg = http.StatusText(e.StatusCode)
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

// TransportError is a connection failure or timeout. The cause stays
// reachable through errors.Is / errors.As.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConnectivityTestError is the diagnostic bundle returned by
// TestConnection. It carries enough to replay the failing request by hand.
type ConnectivityTestError struct {
	// Name is the vendor error code, HTTP_<status>, or NetworkError.
	Name            string
	Message         string
	StatusCode      int
	RequestURL      string
	RequestBody     string
	ResponseHeaders map[string]string
	ResponseBody    string
}

func (e *ConnectivityTestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Name, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Details renders the bundle for logs and operator display.
func (e *ConnectivityTestError) Details() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", e.Name)
	fmt.Fprintf(&b, "Message: %s\n", e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "Status: %d\n", e.StatusCode)
	}
	fmt.Fprintf(&b, "Request URL: %s\n", e.RequestURL)
	fmt.Fprintf(&b, "Request Body:\n%s\n", e.RequestBody)
	if len(e.ResponseHeaders) > 0 {
		b.WriteString("Response Headers:\n")
		keys := make([]string, 0, len(e.ResponseHeaders))
		for k := range e.ResponseHeaders {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, e.ResponseHeaders[k])
		}
	}
	if e.ResponseBody != "" {
		fmt.Fprintf(&b, "Response Body:\n%s\n", e.ResponseBody)
	}
	return b.String()
}

// newAPIError classifies a non-2xx response body.
func newAPIError(provider string, status int, body []byte) *APIError {
	code, message := parseErrorEnvelope(body)
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	return &APIError{
		Provider:   provider,
		StatusCode: status,
		Code:       code,
		Message:    message,
		Body:       string(body),
	}
}

// fromRecordError converts an in-band stream error into an APIError.
func fromRecordError(provider string, err error) error {
	var rec *stream.RecordError
	if errors.As(err, &rec) {
		return &APIError{Provider: provider, Code: rec.Code, Message: rec.Message}
	}
	return err
}

// parseErrorEnvelope reads the error shapes used by the supported vendors:
// {"error":{"code"|"type"|"status","message"}} and the flat
// {"code","message"} variant some relays return.
func parseErrorEnvelope(body []byte) (code, message string) {
	rec, ok := stream.SafeParse(body)
	if !ok {
		return "", ""
	}
	// Some gateways wrap the envelope in an array.
	if rec.IsArray() {
		rec = rec.Get("0")
	}

	errObj := rec.Get("error")
	switch {
	case errObj.IsObject():
		message = errObj.Get("message").String()
		// Gemini sends a numeric code next to a symbolic status.
		for _, path := range []string{"code", "type", "status"} {
			if v := errObj.Get(path); v.Type == gjson.String && v.String() != "" {
				code = v.String()
				break
			}
		}
		if code == "" {
			code = errObj.Get("code").String()
		}
	case errObj.Type == gjson.String:
		message = errObj.String()
		code = rec.Get("type").String()
	default:
		message = rec.Get("message").String()
		code = rec.Get("code").String()
	}
	return code, message
}
