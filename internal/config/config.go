package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/docgate/docgate/pkg/types"
)

// DefaultBaseURLs are applied to configured providers without a base URL.
// openai-compatible has no default: its base URL is the full endpoint.
var DefaultBaseURLs = map[string]string{
	"openai":    "https://api.openai.com",
	"gemini":    "https://generativelanguage.googleapis.com",
	"anthropic": "https://api.anthropic.com",
	"ark":       "https://ark.cn-beijing.volces.com/api/v3",
}

// providerEnv maps provider IDs to the environment variables that
// override their credentials and endpoints.
var providerEnv = map[string]struct {
	APIKey  []string
	BaseURL string
	Model   string
}{
	"openai":            {APIKey: []string{"OPENAI_API_KEY"}, BaseURL: "OPENAI_BASE_URL", Model: "OPENAI_MODEL"},
	"openai-compatible": {APIKey: []string{"OPENAI_COMPATIBLE_API_KEY"}, BaseURL: "OPENAI_COMPATIBLE_BASE_URL", Model: "OPENAI_COMPATIBLE_MODEL"},
	"gemini":            {APIKey: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}, BaseURL: "GEMINI_BASE_URL", Model: "GEMINI_MODEL"},
	"anthropic":         {APIKey: []string{"ANTHROPIC_API_KEY"}, BaseURL: "ANTHROPIC_BASE_URL", Model: "ANTHROPIC_MODEL"},
	"ark":               {APIKey: []string{"ARK_API_KEY"}, BaseURL: "ARK_BASE_URL", Model: "ARK_MODEL_ID"},
}

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.config/docgate/)
// 2. Project config (docgate.json[c], docgate.yaml, .docgate/)
// 3. DOCGATE_CONFIG file
// 4. DOCGATE_CONFIG_CONTENT inline JSON
// 5. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
	}

	for _, path := range Sources(directory) {
		if err := loadConfigFile(path, config, filepath.Dir(path)); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if content := os.Getenv("DOCGATE_CONFIG_CONTENT"); content != "" {
		var inline types.Config
		data := interpolate(jsonc.ToJSON([]byte(content)), directory)
		if err := json.Unmarshal(data, &inline); err != nil {
			return nil, fmt.Errorf("parsing DOCGATE_CONFIG_CONTENT: %w", err)
		}
		mergeConfig(config, &inline)
	}

	applyEnvOverrides(config)
	applyDefaults(config)

	return config, nil
}

// Sources returns the config files Load reads, lowest priority first.
// Files that do not exist are included; Load skips them.
func Sources(directory string) []string {
	var paths []string
	seen := make(map[string]bool)
	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil || seen[abs] {
			return
		}
		seen[abs] = true
		paths = append(paths, abs)
	}

	global := GetPaths().Config
	for _, name := range fileNames {
		add(filepath.Join(global, name))
	}

	if directory != "" {
		for _, name := range fileNames {
			add(filepath.Join(directory, name))
		}
		for _, name := range fileNames {
			add(filepath.Join(directory, ".docgate", name))
		}
	}

	if path := os.Getenv("DOCGATE_CONFIG"); path != "" {
		add(path)
	}
	return paths
}

var fileNames = []string{"docgate.json", "docgate.jsonc", "docgate.yaml", "docgate.yml"}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fileConfig types.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data = interpolate(data, baseDir)
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return err
		}
	default:
		// Strip JSONC comments using tidwall/jsonc
		data = jsonc.ToJSON(data)
		data = interpolate(data, baseDir)
		if err := json.Unmarshal(data, &fileConfig); err != nil {
			return err
		}
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			home := os.Getenv("HOME")
			filePath = filepath.Join(home, filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match
		}

		// Escape for a JSON (or double-quoted YAML) string
		escaped := strings.TrimRight(string(content), "\r\n")
		escaped = strings.ReplaceAll(escaped, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")

		return escaped
	})

	return []byte(str)
}

// mergeConfig merges source config into target. Provider entries are
// merged field by field so a later file can override a single value.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.DefaultProvider != "" {
		target.DefaultProvider = source.DefaultProvider
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for id, src := range source.Provider {
			target.Provider[id] = mergeProvider(target.Provider[id], src)
		}
	}

	if source.Server != nil {
		if target.Server == nil {
			target.Server = &types.ServerConfig{}
		}
		if source.Server.Port != 0 {
			target.Server.Port = source.Server.Port
		}
		if source.Server.Hostname != "" {
			target.Server.Hostname = source.Server.Hostname
		}
		if source.Server.EnableCORS != nil {
			target.Server.EnableCORS = source.Server.EnableCORS
		}
	}

	if source.Log != nil {
		target.Log = source.Log
	}
}

func mergeProvider(dst, src types.ProviderConfig) types.ProviderConfig {
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Stream {
		dst.Stream = true
	}
	if src.TimeoutMS != 0 {
		dst.TimeoutMS = src.TimeoutMS
	}
	if src.TemperatureEnabled {
		dst.Temperature, dst.TemperatureEnabled = src.Temperature, true
	}
	if src.TopPEnabled {
		dst.TopP, dst.TopPEnabled = src.TopP, true
	}
	if src.MaxTokensEnabled {
		dst.MaxTokens, dst.MaxTokensEnabled = src.MaxTokens, true
	}
	if src.Options != nil {
		if dst.Options == nil {
			dst.Options = make(map[string]any)
		}
		for k, v := range src.Options {
			dst.Options[k] = v
		}
	}
	if src.Disable {
		dst.Disable = true
	}
	return dst
}

// applyEnvOverrides applies environment variable overrides. API keys
// from the environment only fill in keys the files left empty.
func applyEnvOverrides(config *types.Config) {
	for id, env := range providerEnv {
		p, configured := config.Provider[id]
		changed := false

		if p.APIKey == "" {
			for _, name := range env.APIKey {
				if key := os.Getenv(name); key != "" {
					p.APIKey = key
					changed = true
					break
				}
			}
		}
		if url := os.Getenv(env.BaseURL); url != "" {
			p.BaseURL = url
			changed = true
		}
		if model := os.Getenv(env.Model); model != "" {
			p.Model = model
			changed = true
		}

		if changed || configured {
			config.Provider[id] = p
		}
	}

	if id := os.Getenv("DOCGATE_PROVIDER"); id != "" {
		config.DefaultProvider = id
	}
}

// applyDefaults fills in vendor base URLs for configured providers.
func applyDefaults(config *types.Config) {
	for id, p := range config.Provider {
		if p.BaseURL == "" {
			if url, ok := DefaultBaseURLs[id]; ok {
				p.BaseURL = url
				config.Provider[id] = p
			}
		}
	}
}

// Save saves the configuration to a file. The format follows the
// file extension.
func Save(config *types.Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
