// Package logging provides config-driven categorized file-based logging for
// Cortex. Logs are written to ~/.cortex/logs/ with one file per category.
// Logging is controlled by debug_mode in the Cortex config - when false, no
// logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot        Category = "boot"
	CategoryPersistence Category = "persistence"
	CategorySemver      Category = "semver"
	CategoryCache       Category = "cache"
	CategoryRouter      Category = "router"
	CategoryDegradation Category = "degradation"
	CategoryInterpreter Category = "interpreter"
	CategoryCoordinator Category = "coordinator"
	CategoryDepGraph    Category = "depgraph"
	CategoryImpact      Category = "impact"
	CategoryHistory     Category = "history"
	CategoryMemory      Category = "memory"
	CategoryEmbedding   Category = "embedding"
	CategoryDaemon      Category = "daemon"
	CategoryUsage       Category = "usage"
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports.
type loggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"`
}

type configFile struct {
	Logging loggingConfig `json:"logging"`
}

// StructuredLogEntry represents a JSON log entry.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	RequestID string                 `json:"req,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers      = make(map[Category]*Logger)
	loggersMu    sync.RWMutex
	logsDir      string
	homeDir      string
	cfg          loggingConfig
	configLoaded bool
	configMu     sync.RWMutex
	logLevel     int
)

const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config. Should be
// called once at startup with the Cortex home directory (default
// ~/.cortex).
func Initialize(home string) error {
	if home == "" {
		return fmt.Errorf("home directory required")
	}

	homeDir = home
	logsDir = filepath.Join(homeDir, "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not load config: %v\n", err)
		cfg.DebugMode = false
	}

	if !cfg.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== Cortex Logging System Initialized ===")
	boot.Info("Home: %s", homeDir)
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Debug mode: %v", cfg.DebugMode)
	boot.Info("Log level: %s", cfg.Level)

	return nil
}

func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	configPath := filepath.Join(homeDir, "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.DebugMode = false
			configLoaded = true
			return nil
		}
		return err
	}

	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	cfg = cf.Logging
	configLoaded = true

	switch cfg.Level {
	case "debug":
		logLevel = LevelDebug
	case "info":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	return nil
}

// ReloadConfig reloads the logging config from disk. Called by the
// daemon's config.reload method.
func ReloadConfig() error {
	return loadConfig()
}

// IsDebugMode returns whether debug logging is enabled.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !cfg.DebugMode {
		return false
	}
	if cfg.Categories == nil {
		return true
	}
	enabled, exists := cfg.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category. Returns a
// no-op logger if debug mode is disabled or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}
	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", date, category)
	logPath := filepath.Join(logsDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("debug", msg)
	} else {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("info", msg)
	} else {
		l.logger.Printf("[INFO] %s", msg)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("warn", msg)
	} else {
		l.logger.Printf("[WARN] %s", msg)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("error", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// RequestLogger provides request-scoped logging with a correlation ID,
// used for daemon request tracing.
type RequestLogger struct {
	logger    *Logger
	requestID string
	fields    map[string]interface{}
}

func WithRequestID(category Category, requestID string) *RequestLogger {
	return &RequestLogger{
		logger:    Get(category),
		requestID: requestID,
		fields:    make(map[string]interface{}),
	}
}

func (r *RequestLogger) WithField(key string, value interface{}) *RequestLogger {
	r.fields[key] = value
	return r
}

func (r *RequestLogger) formatMsg(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if len(r.fields) > 0 {
		return fmt.Sprintf("[req:%s] %s | %v", r.requestID, msg, r.fields)
	}
	return fmt.Sprintf("[req:%s] %s", r.requestID, msg)
}

func (r *RequestLogger) Info(format string, args ...interface{}) {
	if r.logger.logger == nil || logLevel > LevelInfo {
		return
	}
	r.logger.logger.Printf("[INFO] %s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Error(format string, args ...interface{}) {
	if r.logger.logger == nil {
		return
	}
	r.logger.logger.Printf("[ERROR] %s", r.formatMsg(format, args...))
}

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

// =============================================================================
// CONVENIENCE FUNCTIONS - quick logging without getting a logger first.
// No-ops if the category is disabled.
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

func Persistence(format string, args ...interface{}) { Get(CategoryPersistence).Info(format, args...) }
func PersistenceDebug(format string, args ...interface{}) {
	Get(CategoryPersistence).Debug(format, args...)
}

func Semver(format string, args ...interface{})      { Get(CategorySemver).Info(format, args...) }
func SemverDebug(format string, args ...interface{}) { Get(CategorySemver).Debug(format, args...) }

func Cache(format string, args ...interface{})      { Get(CategoryCache).Info(format, args...) }
func CacheDebug(format string, args ...interface{}) { Get(CategoryCache).Debug(format, args...) }

func Router(format string, args ...interface{})      { Get(CategoryRouter).Info(format, args...) }
func RouterDebug(format string, args ...interface{}) { Get(CategoryRouter).Debug(format, args...) }

func Degradation(format string, args ...interface{}) { Get(CategoryDegradation).Info(format, args...) }
func DegradationDebug(format string, args ...interface{}) {
	Get(CategoryDegradation).Debug(format, args...)
}

func Interpreter(format string, args ...interface{}) { Get(CategoryInterpreter).Info(format, args...) }
func InterpreterDebug(format string, args ...interface{}) {
	Get(CategoryInterpreter).Debug(format, args...)
}

func Coordinator(format string, args ...interface{}) { Get(CategoryCoordinator).Info(format, args...) }
func CoordinatorDebug(format string, args ...interface{}) {
	Get(CategoryCoordinator).Debug(format, args...)
}

func DepGraph(format string, args ...interface{})      { Get(CategoryDepGraph).Info(format, args...) }
func DepGraphDebug(format string, args ...interface{}) { Get(CategoryDepGraph).Debug(format, args...) }

func Impact(format string, args ...interface{})      { Get(CategoryImpact).Info(format, args...) }
func ImpactDebug(format string, args ...interface{}) { Get(CategoryImpact).Debug(format, args...) }

func History(format string, args ...interface{})      { Get(CategoryHistory).Info(format, args...) }
func HistoryDebug(format string, args ...interface{}) { Get(CategoryHistory).Debug(format, args...) }

func Memory(format string, args ...interface{})      { Get(CategoryMemory).Info(format, args...) }
func MemoryDebug(format string, args ...interface{}) { Get(CategoryMemory).Debug(format, args...) }

func Embedding(format string, args ...interface{}) { Get(CategoryEmbedding).Info(format, args...) }
func EmbeddingDebug(format string, args ...interface{}) {
	Get(CategoryEmbedding).Debug(format, args...)
}

func Daemon(format string, args ...interface{})      { Get(CategoryDaemon).Info(format, args...) }
func DaemonDebug(format string, args ...interface{}) { Get(CategoryDaemon).Debug(format, args...) }

func Usage(format string, args ...interface{})      { Get(CategoryUsage).Info(format, args...) }
func UsageDebug(format string, args ...interface{}) { Get(CategoryUsage).Debug(format, args...) }
