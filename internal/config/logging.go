package config

// LoggingConfig mirrors the structure internal/logging reads from
// ~/.cortex/config.json. It is duplicated (not imported) deliberately:
// internal/logging must not import internal/config, since internal/config
// itself logs during Load via internal/logging in the daemon's
// config.reload path.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories,omitempty"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}
