// Package provider adapts vendor LLM APIs to one streaming contract.
//
// Every adapter implements Provider: Summarize and Chat stream text
// deltas to a progress callback and return the aggregated text, and
// TestConnection issues a minimal blocking request for diagnostics.
// Adapters whose vendor accepts several documents in one request also
// implement MultiFileSummarizer.
//
// # Supported Providers
//
//   - openai: Responses API (POST {base}/v1/responses), or Chat
//     Completions when the "apiMode" option is "chat"
//   - openai-compatible: Chat Completions against the configured endpoint
//   - gemini: streamGenerateContent with SSE framing
//   - anthropic: Messages API
//   - ark: Volcengine Ark responses endpoint
//
// # Registration
//
// Adapters are registered explicitly at startup:
//
//	registry := provider.InitializeProviders(http.DefaultClient)
//	p, err := registry.Get("gemini")
//	text, err := p.Summarize(ctx, &provider.SummarizeRequest{
//	    Content: doc,
//	    Prompt:  "Summarize this document",
//	}, cfg, func(delta string) { fmt.Print(delta) })
//
// # Failures
//
// Missing base URL or API key fail with a *types.ConfigError before any
// request is sent. Vendor failures surface as *APIError and network
// failures as *TransportError. When a stream fails after producing
// output, the PartialResultPolicy of the operation decides whether the
// partial text or the error is returned. TestConnection never falls back
// and reports failures as *ConnectivityTestError.
//
// # Eino
//
// NewChatModel wraps any Provider as an Eino model.BaseChatModel.
package provider
