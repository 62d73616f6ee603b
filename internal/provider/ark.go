package provider

import (
	"net/http"
	"strings"

	"github.com/docgate/docgate/internal/stream"
	"github.com/docgate/docgate/pkg/types"
)

// ArkProvider implements Provider for Volcengine Ark models.
// The model field carries the Ark endpoint ID.
type ArkProvider struct {
	base
}

// NewArkProvider creates a new Ark provider.
func NewArkProvider(client *http.Client) *ArkProvider {
	p := &ArkProvider{}
	p.base = newBase("ark", "Volcengine Ark", client, Policies{
		Summarize: PartialFallback,
		Chat:      AbortErrorFirst,
	}, p.build)
	return p
}

func (p *ArkProvider) build(cfg *types.ProviderConfig, system string, turns []turn, streaming bool) (*request, error) {
	body, err := marshalPayload(newResponsesRequest(cfg, system, turns, streaming), cfg)
	if err != nil {
		return nil, err
	}
	return &request{
		URL:     arkEndpoint(cfg.BaseURL),
		Header:  bearer(cfg.APIKey),
		Body:    body,
		Stream:  streaming,
		Model:   cfg.Model,
		Dialect: stream.Ark,
		Extract: responsesText,
	}, nil
}

// arkEndpoint appends /responses unless the base URL already ends with it.
func arkEndpoint(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(u, "/responses") {
		return u
	}
	return u + "/responses"
}
