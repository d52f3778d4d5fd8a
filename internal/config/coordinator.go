package config

// CoordinatorConfig tunes the installation coordinator's step execution
// .
type CoordinatorConfig struct {
	DefaultStepTimeoutSeconds int `yaml:"default_step_timeout_seconds"`
	VerifyTimeoutSeconds      int `yaml:"verify_timeout_seconds"`
}

// DepGraphConfig tunes the dependency graph cache and traversal.
type DepGraphConfig struct {
	CacheMaxAgeSeconds int    `yaml:"cache_max_age_seconds"`
	CacheFilePath      string `yaml:"cache_file_path"`
	MaxDepth           int    `yaml:"max_depth"`
}
