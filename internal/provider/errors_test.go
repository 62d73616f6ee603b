package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docgate/docgate/internal/stream"
)

func TestParseErrorEnvelope(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    string
		wantMessage string
	}{
		{
			name:        "openai",
			body:        `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","param":null,"code":"invalid_api_key"}}`,
			wantCode:    "invalid_api_key",
			wantMessage: "Incorrect API key provided",
		},
		{
			name:        "openai null code",
			body:        `{"error":{"message":"Rate limit","type":"requests","code":null}}`,
			wantCode:    "requests",
			wantMessage: "Rate limit",
		},
		{
			name:        "anthropic",
			body:        `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			wantCode:    "authentication_error",
			wantMessage: "invalid x-api-key",
		},
		{
			name:        "gemini",
			body:        `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`,
			wantCode:    "INVALID_ARGUMENT",
			wantMessage: "API key not valid",
		},
		{
			name:        "gemini array",
			body:        `[{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}]`,
			wantCode:    "RESOURCE_EXHAUSTED",
			wantMessage: "Quota exceeded",
		},
		{
			name:        "numeric code only",
			body:        `{"error":{"code":503,"message":"unavailable"}}`,
			wantCode:    "503",
			wantMessage: "unavailable",
		},
		{
			name:        "flat",
			body:        `{"code":"InvalidEndpoint","message":"endpoint not found"}`,
			wantCode:    "InvalidEndpoint",
			wantMessage: "endpoint not found",
		},
		{
			name:        "string error",
			body:        `{"error":"bad things","type":"relay"}`,
			wantCode:    "relay",
			wantMessage: "bad things",
		},
		{
			name: "not json",
			body: `<html>502</html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message := parseErrorEnvelope([]byte(tt.body))
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

func TestNewAPIError(t *testing.T) {
	err := newAPIError("openai", 401, []byte(`{"error":{"message":"bad key","code":"invalid_api_key"}}`))
	assert.Equal(t, "openai: HTTP 401: invalid_api_key: bad key", err.Error())

	err = newAPIError("gemini", 502, []byte("  upstream down \n"))
	assert.Equal(t, "", err.Code)
	assert.Equal(t, "upstream down", err.Message)

	err = newAPIError("ark", 503, nil)
	assert.Equal(t, "ark: HTTP 503: Service Unavailable", err.Error())
}

func TestFromRecordError(t *testing.T) {
	err := fromRecordError("anthropic", &stream.RecordError{Dialect: "anthropic", Code: "overloaded_error", Message: "Overloaded"})

	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "anthropic: stream error: overloaded_error: Overloaded", apiErr.Error())
	assert.Zero(t, apiErr.StatusCode)

	plain := errors.New("other")
	assert.Equal(t, plain, fromRecordError("x", plain))
}

func TestTransportError_Unwrap(t *testing.T) {
	err := &TransportError{Provider: "openai", Err: fmt.Errorf("%w: read tcp", context.DeadlineExceeded)}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "openai: network error")
}

func TestConnectivityTestError_Details(t *testing.T) {
	err := &ConnectivityTestError{
		Name:            "invalid_api_key",
		Message:         "bad key",
		StatusCode:      401,
		RequestURL:      "https://api.openai.com/v1/responses",
		RequestBody:     `{"model":"gpt-4o"}`,
		ResponseHeaders: map[string]string{"x-request-id": "abc", "content-type": "application/json"},
		ResponseBody:    `{"error":{}}`,
	}

	assert.Equal(t, "invalid_api_key (HTTP 401): bad key", err.Error())
	details := err.Details()
	assert.Contains(t, details, "Error: invalid_api_key\n")
	assert.Contains(t, details, "Status: 401\n")
	assert.Contains(t, details, "Request URL: https://api.openai.com/v1/responses\n")
	assert.Contains(t, details, "Request Body:\n{\"model\":\"gpt-4o\"}\n")
	assert.Contains(t, details, "  content-type: application/json\n  x-request-id: abc\n")
	assert.Contains(t, details, "Response Body:\n{\"error\":{}}\n")

	network := &ConnectivityTestError{Name: "NetworkError", Message: "dial tcp: refused"}
	assert.Equal(t, "NetworkError: dial tcp: refused", network.Error())
	assert.NotContains(t, network.Details(), "Status:")
}
