package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/docgate/docgate/internal/gateway"
	"github.com/docgate/docgate/internal/provider"
	"github.com/docgate/docgate/pkg/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeProviderError    = "PROVIDER_ERROR"
	ErrCodeConfigError      = "CONFIG_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeConnectivityTest = "CONNECTIVITY_TEST_FAILED"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorWithDetails(w, status, code, message, nil)
}

// writeErrorWithDetails writes an error response with details.
func writeErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// classify maps a gateway error to an HTTP status and error detail.
func classify(err error) (int, ErrorDetail) {
	detail := ErrorDetail{Code: ErrCodeInternalError, Message: err.Error()}

	var (
		cfgErr       *types.ConfigError
		apiErr       *provider.APIError
		transportErr *provider.TransportError
		testErr      *provider.ConnectivityTestError
	)
	switch {
	case errors.Is(err, provider.ErrProviderNotFound):
		detail.Code = ErrCodeNotFound
		return http.StatusNotFound, detail

	case errors.As(err, &cfgErr):
		detail.Code = ErrCodeConfigError
		detail.Details = map[string]any{"field": cfgErr.Field}
		return http.StatusBadRequest, detail

	case errors.Is(err, provider.ErrEmptyConversation),
		errors.Is(err, provider.ErrNoFiles),
		errors.Is(err, gateway.ErrMultiFileUnsupported):
		detail.Code = ErrCodeInvalidRequest
		return http.StatusBadRequest, detail

	case errors.As(err, &testErr):
		detail.Code = ErrCodeConnectivityTest
		detail.Details = map[string]any{
			"name":            testErr.Name,
			"statusCode":      testErr.StatusCode,
			"requestURL":      testErr.RequestURL,
			"requestBody":     testErr.RequestBody,
			"responseHeaders": testErr.ResponseHeaders,
			"responseBody":    testErr.ResponseBody,
			"diagnostics":     testErr.Details(),
		}
		return http.StatusBadGateway, detail

	case errors.As(err, &apiErr):
		detail.Code = ErrCodeProviderError
		detail.Details = map[string]any{
			"provider":   apiErr.Provider,
			"statusCode": apiErr.StatusCode,
			"vendorCode": apiErr.Code,
		}
		return http.StatusBadGateway, detail

	case errors.As(err, &transportErr):
		detail.Code = ErrCodeProviderError
		detail.Details = map[string]any{"provider": transportErr.Provider}
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, detail
		}
		return http.StatusBadGateway, detail
	}
	return http.StatusInternalServerError, detail
}

// writeCallError writes a gateway error as a JSON error response.
func writeCallError(w http.ResponseWriter, err error) {
	status, detail := classify(err)
	writeJSON(w, status, ErrorResponse{Error: detail})
}
