package provider

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// Registry maps provider IDs to adapters.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry, replacing any provider
// previously registered under the same ID.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.ID()] = provider
}

// Get retrieves a provider by ID.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}
	return provider, nil
}

// List returns the registered provider IDs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Providers returns the registered adapters ordered by ID.
func (r *Registry) Providers() []Provider {
	ids := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.providers[id]; ok {
			providers = append(providers, p)
		}
	}
	return providers
}

// InitializeProviders creates a registry holding every known adapter.
// It is called once at startup; client is shared by all adapters.
func InitializeProviders(client *http.Client) *Registry {
	registry := NewRegistry()
	registry.Register(NewOpenAIProvider(client))
	registry.Register(NewOpenAICompatibleProvider(client))
	registry.Register(NewGeminiProvider(client))
	registry.Register(NewAnthropicProvider(client))
	registry.Register(NewArkProvider(client))
	return registry
}
