// Package config loads and watches docgate configuration.
//
// Configuration is merged from several sources, later sources winning:
//
//  1. Global config (~/.config/docgate/docgate.json[c] or docgate.yaml)
//  2. Project config (docgate.json[c] or docgate.yaml in the working directory)
//  3. Project config under .docgate/
//  4. DOCGATE_CONFIG file
//  5. DOCGATE_CONFIG_CONTENT inline JSON
//  6. Environment variables
//
// JSON files may contain comments (tidwall/jsonc). Files ending in .yaml or
// .yml are parsed with yaml.v3. All formats support {env:VAR} and
// {file:path} placeholders; relative file paths resolve against the
// directory of the file that references them.
//
// Provider entries merge field by field, so a project file can override
// only the model of a provider whose key lives in the global file:
//
//	{
//	  "defaultProvider": "anthropic",
//	  "provider": {
//	    "anthropic": {
//	      "apiKey": "{env:ANTHROPIC_API_KEY}",
//	      "model": "claude-sonnet-4-5",
//	      "stream": true,
//	      "maxTokens": 2048,
//	      "maxTokensEnabled": true
//	    }
//	  }
//	}
//
// # Environment Variable Overrides
//
//   - OPENAI_API_KEY, OPENAI_BASE_URL, OPENAI_MODEL
//   - OPENAI_COMPATIBLE_API_KEY, OPENAI_COMPATIBLE_BASE_URL, OPENAI_COMPATIBLE_MODEL
//   - GEMINI_API_KEY (or GOOGLE_API_KEY), GEMINI_BASE_URL, GEMINI_MODEL
//   - ANTHROPIC_API_KEY, ANTHROPIC_BASE_URL, ANTHROPIC_MODEL
//   - ARK_API_KEY, ARK_BASE_URL, ARK_MODEL_ID
//   - DOCGATE_PROVIDER selects the default provider
//
// API keys from the environment never replace a key set in a file.
//
// Watcher reloads the merged configuration when any source file changes.
package config
