package config

// HistoryConfig locates the transactional-history and installation-ledger
// databases. InstallationDBPath defaults to the system-wide
// /var/lib/cortex/history.db with a fallback to ~/.cortex/history.db
// (see systemInstallationHistoryPath).
type HistoryConfig struct {
	TransactionDBPath  string `yaml:"transaction_db_path"`
	InstallationDBPath string `yaml:"installation_db_path"`
}

// MemoryConfig locates the context-memory database.
type MemoryConfig struct {
	DBPath string `yaml:"db_path"`
}
