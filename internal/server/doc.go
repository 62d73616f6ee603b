// Package server exposes the document gateway over HTTP.
//
// # Endpoints
//
//   - GET  /health
//   - GET  /provider: registered providers and whether each is configured
//   - POST /provider/{providerID}/summarize: {content, isEncoded, prompt, config}
//   - POST /provider/{providerID}/chat: {documentContent, isEncoded, conversation, config}
//   - POST /provider/{providerID}/summarize-files: {files, prompt, config}
//   - POST /provider/{providerID}/test: {config}
//   - GET  /event: every gateway event as SSE
//
// The config field is optional; without it the provider section of the
// loaded configuration is used.
//
// # Streaming
//
// Document calls answer with {"text": ...} unless the request sends
// "Accept: text/event-stream". Then the response is an SSE stream of
// "delta" records ({"delta": ...}) that ends with a single "done"
// ({"text": ...}) or "error" ({"error": {...}}) record. Once the stream has
// started the HTTP status is always 200.
//
// # Errors
//
// Failures use the envelope {"error": {"code", "message", "details"}}:
//
//   - NOT_FOUND (404): unknown provider
//   - CONFIG_ERROR (400): missing base URL, key, model, or other setting
//   - INVALID_REQUEST (400): bad body, empty conversation, no files
//   - PROVIDER_ERROR (502, 504 on timeout): vendor or network failure
//   - CONNECTIVITY_TEST_FAILED (502): the test call failed; details carry
//     the request URL, request body, response headers and response body
//   - INTERNAL_ERROR (500)
package server
