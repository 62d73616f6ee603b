package types

// Config represents the docgate configuration file.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// DefaultProvider is used when a call does not name a provider.
	DefaultProvider string `json:"defaultProvider,omitempty" yaml:"defaultProvider,omitempty"`

	// Provider configs keyed by provider ID ("openai", "gemini", ...)
	Provider map[string]ProviderConfig `json:"provider,omitempty" yaml:"provider,omitempty"`

	// HTTP server settings
	Server *ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Logging settings
	Log *LogConfig `json:"log,omitempty" yaml:"log,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
	Hostname   string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	EnableCORS *bool  `json:"cors,omitempty" yaml:"cors,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"` // DEBUG|INFO|WARN|ERROR
	Pretty bool   `json:"pretty,omitempty" yaml:"pretty,omitempty"`
	File   bool   `json:"file,omitempty" yaml:"file,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// ProviderConfig holds the per-call options for one provider.
//
// Sampling parameters are independently toggleable: a value is only sent
// to the vendor when its Enabled flag is set.
type ProviderConfig struct {
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	APIKey  string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`

	// Stream selects SSE streaming over a single JSON response.
	Stream bool `json:"stream,omitempty" yaml:"stream,omitempty"`

	// TimeoutMS is the request timeout in milliseconds. 0 = default.
	TimeoutMS int `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	Temperature        float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TemperatureEnabled bool    `json:"temperatureEnabled,omitempty" yaml:"temperatureEnabled,omitempty"`
	TopP               float64 `json:"topP,omitempty" yaml:"topP,omitempty"`
	TopPEnabled        bool    `json:"topPEnabled,omitempty" yaml:"topPEnabled,omitempty"`
	MaxTokens          int     `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	MaxTokensEnabled   bool    `json:"maxTokensEnabled,omitempty" yaml:"maxTokensEnabled,omitempty"`

	// Options is an opaque vendor-specific bag kept for forward compatibility.
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`

	// Disable provider
	Disable bool `json:"disable,omitempty" yaml:"disable,omitempty"`
}

// Validate checks the fields every network call needs.
func (c *ProviderConfig) Validate() error {
	if c == nil {
		return &ConfigError{Field: "config", Message: "provider config is required"}
	}
	if c.BaseURL == "" {
		return &ConfigError{Field: "baseURL", Message: "base URL is not configured"}
	}
	if c.APIKey == "" {
		return &ConfigError{Field: "apiKey", Message: "API key is not configured"}
	}
	return nil
}

// TemperatureValue returns the temperature when enabled.
func (c *ProviderConfig) TemperatureValue() *float64 {
	if !c.TemperatureEnabled {
		return nil
	}
	v := c.Temperature
	return &v
}

// TopPValue returns top-p when enabled.
func (c *ProviderConfig) TopPValue() *float64 {
	if !c.TopPEnabled {
		return nil
	}
	v := c.TopP
	return &v
}

// MaxTokensValue returns the output token limit when enabled.
func (c *ProviderConfig) MaxTokensValue() *int {
	if !c.MaxTokensEnabled || c.MaxTokens <= 0 {
		return nil
	}
	v := c.MaxTokens
	return &v
}

// StringOption returns a string entry from Options, or def.
func (c *ProviderConfig) StringOption(key, def string) string {
	if c == nil || c.Options == nil {
		return def
	}
	if s, ok := c.Options[key].(string); ok && s != "" {
		return s
	}
	return def
}

// MapOption returns a nested object from Options.
func (c *ProviderConfig) MapOption(key string) map[string]any {
	if c == nil || c.Options == nil {
		return nil
	}
	m, _ := c.Options[key].(map[string]any)
	return m
}
