package config

// PersistenceConfig tunes the shared SQLite connection-pool registry and
// the flat-file locked-update primitive.
type PersistenceConfig struct {
	MaxConnectionsPerDB int `yaml:"max_connections_per_db"`
	BusyTimeoutMs       int `yaml:"busy_timeout_ms"`
}
