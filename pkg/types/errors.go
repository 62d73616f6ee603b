package types

import "errors"

// ErrConfiguration is matched by every configuration error.
var ErrConfiguration = errors.New("configuration error")

// ConfigError reports a missing or invalid configuration value. It is
// always raised before any network access.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return "configuration error: " + e.Field + ": " + e.Message
	}
	return "configuration error: " + e.Message
}

// Is makes errors.Is(err, ErrConfiguration) succeed.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}
