// Package gateway routes document calls to provider adapters.
//
// A Gateway resolves the provider and its configuration, assigns every
// call an ID, and reports the call lifecycle on the event bus. The HTTP
// server, the MCP server, and the CLI all call providers through it.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/docgate/docgate/internal/event"
	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/internal/provider"
	"github.com/docgate/docgate/pkg/types"
)

// ErrMultiFileUnsupported is returned by SummarizeMultiFile for adapters
// that only accept a single document.
var ErrMultiFileUnsupported = errors.New("multi-file summaries are not supported")

// Gateway is safe for concurrent use. The application config can be
// swapped at any time; calls already running keep the config they
// resolved at start.
type Gateway struct {
	registry *provider.Registry
	bus      *event.Bus
	config   atomic.Pointer[types.Config]
}

// New creates a gateway. A nil cfg is treated as an empty config.
func New(registry *provider.Registry, cfg *types.Config, bus *event.Bus) *Gateway {
	if cfg == nil {
		cfg = &types.Config{}
	}
	g := &Gateway{registry: registry, bus: bus}
	g.config.Store(cfg)
	return g
}

// Config returns the current application config.
func (g *Gateway) Config() *types.Config {
	return g.config.Load()
}

// UpdateConfig swaps the application config.
func (g *Gateway) UpdateConfig(cfg *types.Config) {
	if cfg == nil {
		return
	}
	g.config.Store(cfg)
}

// Reload swaps the config and announces it. It matches config.ReloadFunc.
func (g *Gateway) Reload(cfg *types.Config, changed string) {
	g.UpdateConfig(cfg)

	ids := make([]string, 0, len(cfg.Provider))
	for id := range cfg.Provider {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	g.publish(event.ConfigReloaded, event.ConfigReloadedData{File: changed, Providers: ids})
}

// Providers lists the registered provider IDs.
func (g *Gateway) Providers() []string {
	return g.registry.List()
}

// Registry returns the provider registry.
func (g *Gateway) Registry() *provider.Registry {
	return g.registry
}

// Bus returns the event bus, which may be nil.
func (g *Gateway) Bus() *event.Bus {
	return g.bus
}

// ProviderConfig returns a copy of the configured options for id.
func (g *Gateway) ProviderConfig(id string) types.ProviderConfig {
	return g.Config().Provider[id]
}

// Summarize runs a one-shot document analysis.
func (g *Gateway) Summarize(ctx context.Context, providerID string, req *provider.SummarizeRequest, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error) {
	return g.run(ctx, event.OpSummarize, providerID, cfg, onProgress,
		func(p provider.Provider, cfg *types.ProviderConfig, progress types.ProgressFunc) (string, error) {
			return p.Summarize(ctx, req, cfg, progress)
		})
}

// Chat continues a conversation about a document.
func (g *Gateway) Chat(ctx context.Context, providerID string, req *provider.ChatRequest, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error) {
	return g.run(ctx, event.OpChat, providerID, cfg, onProgress,
		func(p provider.Provider, cfg *types.ProviderConfig, progress types.ProgressFunc) (string, error) {
			return p.Chat(ctx, req, cfg, progress)
		})
}

// SummarizeMultiFile analyzes several documents in one request.
func (g *Gateway) SummarizeMultiFile(ctx context.Context, providerID string, files []types.MultiFileInput, prompt string, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error) {
	return g.run(ctx, event.OpSummarizeMultiFile, providerID, cfg, onProgress,
		func(p provider.Provider, cfg *types.ProviderConfig, progress types.ProgressFunc) (string, error) {
			mf, ok := p.(provider.MultiFileSummarizer)
			if !ok {
				return "", fmt.Errorf("%s: %w", p.ID(), ErrMultiFileUnsupported)
			}
			return mf.SummarizeMultiFile(ctx, files, prompt, cfg, progress)
		})
}

// TestConnection probes the provider. Failures are *provider.ConnectivityTestError.
func (g *Gateway) TestConnection(ctx context.Context, providerID string, cfg *types.ProviderConfig) (string, error) {
	return g.run(ctx, event.OpTestConnection, providerID, cfg, nil,
		func(p provider.Provider, cfg *types.ProviderConfig, _ types.ProgressFunc) (string, error) {
			return p.TestConnection(ctx, cfg)
		})
}

// Resolve returns the adapter and effective config for a call. An empty
// providerID selects the default provider; a nil cfg selects the
// configured options of that provider.
func (g *Gateway) Resolve(providerID string, cfg *types.ProviderConfig) (provider.Provider, *types.ProviderConfig, error) {
	appCfg := g.Config()
	if providerID == "" {
		providerID = appCfg.DefaultProvider
	}
	if providerID == "" {
		return nil, nil, &types.ConfigError{Field: "provider", Message: "no provider selected and no defaultProvider configured"}
	}

	p, err := g.registry.Get(providerID)
	if err != nil {
		return nil, nil, err
	}

	if cfg == nil {
		stored, ok := appCfg.Provider[providerID]
		if !ok {
			return nil, nil, &types.ConfigError{Field: "provider." + providerID, Message: "provider is not configured"}
		}
		cfg = &stored
	}
	if cfg.Disable {
		return nil, nil, &types.ConfigError{Field: "provider." + providerID, Message: "provider is disabled"}
	}
	return p, cfg, nil
}

type callFunc func(p provider.Provider, cfg *types.ProviderConfig, progress types.ProgressFunc) (string, error)

func (g *Gateway) run(ctx context.Context, op, providerID string, cfg *types.ProviderConfig, onProgress types.ProgressFunc, call callFunc) (string, error) {
	p, cfg, err := g.Resolve(providerID, cfg)
	if err != nil {
		return "", err
	}

	callID := ulid.Make().String()
	start := time.Now()
	g.publish(event.CallStarted, event.CallStartedData{
		CallID:    callID,
		Provider:  p.ID(),
		Operation: op,
		Model:     cfg.Model,
		Stream:    cfg.Stream,
	})

	progress := func(delta string) {
		g.publish(event.CallDelta, event.CallDeltaData{CallID: callID, Delta: delta})
		if onProgress != nil {
			onProgress(delta)
		}
	}

	text, err := call(p, cfg, progress)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		logging.Warn().
			Err(err).
			Str("call", callID).
			Str("provider", p.ID()).
			Str("op", op).
			Int64("durationMs", elapsed).
			Msg("Call failed")
		g.publish(event.CallFailed, event.CallFailedData{
			CallID:     callID,
			Provider:   p.ID(),
			Operation:  op,
			Error:      err.Error(),
			DurationMS: elapsed,
		})
		return "", err
	}

	logging.Info().
		Str("call", callID).
		Str("provider", p.ID()).
		Str("op", op).
		Int("length", len(text)).
		Int64("durationMs", elapsed).
		Msg("Call completed")
	g.publish(event.CallCompleted, event.CallCompletedData{
		CallID:     callID,
		Provider:   p.ID(),
		Operation:  op,
		Length:     len(text),
		DurationMS: elapsed,
	})
	return text, nil
}

// publish delivers synchronously so deltas keep their order.
func (g *Gateway) publish(t event.EventType, data any) {
	if g.bus == nil {
		return
	}
	g.bus.PublishSync(event.Event{Type: t, Data: data})
}

// ChatModel returns an Eino chat model for the resolved provider. Its
// calls run through the gateway, so they are logged and published on
// the bus like any other chat call.
func (g *Gateway) ChatModel(providerID string, cfg *types.ProviderConfig) (*provider.ChatModel, error) {
	p, resolved, err := g.Resolve(providerID, cfg)
	if err != nil {
		return nil, err
	}
	return provider.NewChatModel(&routed{gw: g, id: p.ID(), name: p.Name()}, *resolved), nil
}

// routed is a Provider that sends every call back through the gateway.
type routed struct {
	gw   *Gateway
	id   string
	name string
}

func (r *routed) ID() string   { return r.id }
func (r *routed) Name() string { return r.name }

func (r *routed) Summarize(ctx context.Context, req *provider.SummarizeRequest, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error) {
	return r.gw.Summarize(ctx, r.id, req, cfg, onProgress)
}

func (r *routed) Chat(ctx context.Context, req *provider.ChatRequest, cfg *types.ProviderConfig, onProgress types.ProgressFunc) (string, error) {
	return r.gw.Chat(ctx, r.id, req, cfg, onProgress)
}

func (r *routed) TestConnection(ctx context.Context, cfg *types.ProviderConfig) (string, error) {
	return r.gw.TestConnection(ctx, r.id, cfg)
}
