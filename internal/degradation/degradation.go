// Package degradation implements the health/fallback state machine
// : tracking LLM API health, stepping through a five-tier
// query-processing ladder (live LLM, exact cache, keyword-overlap cache
// match, pattern matcher, manual mode), and a SQLite-backed response cache for offline
// use.
package degradation

import (
	"context"
	"sync"
	"time"

	"cortex/internal/cache"
	"cortex/internal/logging"
)

// APIStatus describes the LLM API's last observed health.
type APIStatus string

const (
	APIAvailable   APIStatus = "available"
	APIDegraded    APIStatus = "degraded"
	APIUnavailable APIStatus = "unavailable"
	APIUnknown     APIStatus = "unknown"
)

// FallbackMode is the current operating mode.
type FallbackMode string

const (
	ModeFullAI          FallbackMode = "full_ai"
	ModeCachedOnly      FallbackMode = "cached_only"
	ModePatternMatching FallbackMode = "pattern_matching"
	ModeManual          FallbackMode = "manual_mode"
)

// MaxFailuresBeforeFallback is the default api_failures threshold that
// drops out of FULL_AI mode.
const MaxFailuresBeforeFallback = 3

// HealthCheckResult is one health-check outcome.
type HealthCheckResult struct {
	Status       APIStatus
	LatencyMs    float64
	ErrorMessage string
	CheckedAt    time.Time
}

func (h HealthCheckResult) IsHealthy() bool { return h.Status == APIAvailable }

// Degradation holds the state machine plus its cache and pattern matcher.
type Degradation struct {
	responseCache  *ResponseCache
	patternMatcher *PatternMatcher

	mu                        sync.Mutex
	currentMode               FallbackMode
	apiFailures               int
	maxFailuresBeforeFallback int
	lastHealthCheck           *HealthCheckResult
}

// New builds a Degradation manager backed by the given response-cache
// database path.
func New(responseCacheDBPath string) (*Degradation, error) {
	rc, err := OpenResponseCache(responseCacheDBPath)
	if err != nil {
		return nil, err
	}
	return &Degradation{
		responseCache:             rc,
		patternMatcher:            NewPatternMatcher(),
		currentMode:               ModeFullAI,
		maxFailuresBeforeFallback: MaxFailuresBeforeFallback,
	}, nil
}

// CurrentMode returns the active fallback mode.
func (d *Degradation) CurrentMode() FallbackMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentMode
}

// CheckAPIHealth probes LLM availability via healthCheck (nil means "not
// configured", treated as unavailable), updating the failure counter and
// current mode.
func (d *Degradation) CheckAPIHealth(healthCheck func() bool) HealthCheckResult {
	log := logging.Get(logging.CategoryDegradation)
	start := time.Now()

	var result HealthCheckResult
	isHealthy := false
	if healthCheck != nil {
		isHealthy = healthCheck()
	}
	latency := time.Since(start).Seconds() * 1000

	d.mu.Lock()
	if isHealthy {
		status := APIAvailable
		if latency >= 1000 {
			status = APIDegraded
		}
		d.apiFailures = 0
		result = HealthCheckResult{Status: status, LatencyMs: latency, CheckedAt: time.Now()}
	} else {
		d.apiFailures++
		result = HealthCheckResult{Status: APIUnavailable, LatencyMs: latency, CheckedAt: time.Now()}
	}
	d.lastHealthCheck = &result
	d.updateModeLocked()
	mode := d.currentMode
	failures := d.apiFailures
	d.mu.Unlock()

	log.Debug("health check: status=%s failures=%d mode=%s", result.Status, failures, mode)
	return result
}

// updateModeLocked recomputes currentMode from apiFailures. Caller must
// hold d.mu.
func (d *Degradation) updateModeLocked() {
	switch {
	case d.apiFailures >= d.maxFailuresBeforeFallback:
		stats, err := d.responseCache.Stats()
		if err == nil && stats.TotalEntries > 0 {
			d.currentMode = ModeCachedOnly
		} else {
			d.currentMode = ModePatternMatching
		}
	case d.apiFailures > 0:
		d.currentMode = ModeCachedOnly
	default:
		d.currentMode = ModeFullAI
	}
}

// QueryResult is process_query's output.
type QueryResult struct {
	Query        string
	Response     string
	Command      string
	Source       string
	Confidence   float64
	Mode         FallbackMode
	Cached       bool
	SimilarQuery string
}

// LLMFunc performs a live LLM call; returning an error records an API
// failure and steps the mode machine down before falling through to the
// next tier.
type LLMFunc func(ctx context.Context, query string) (string, error)

// ProcessQuery implements the five-tier fallback ladder: live LLM, exact
// cache, similarity cache, pattern matcher, manual mode.
func (d *Degradation) ProcessQuery(ctx context.Context, query string, llm LLMFunc) QueryResult {
	log := logging.Get(logging.CategoryDegradation)

	d.mu.Lock()
	mode := d.currentMode
	d.mu.Unlock()

	result := QueryResult{Query: query, Mode: mode}

	if mode == ModeFullAI && llm != nil {
		resp, err := llm(ctx, query)
		if err == nil {
			result.Response = resp
			result.Source = "llm"
			result.Confidence = 1.0
			d.responseCache.Put(query, resp)
			return result
		}
		log.Warn("llm call failed: %v", err)
		d.mu.Lock()
		d.apiFailures++
		d.updateModeLocked()
		result.Mode = d.currentMode
		d.mu.Unlock()
	}

	if cached, ok := d.responseCache.Get(query); ok {
		result.Response = cached.Response
		result.Source = "cache"
		result.Confidence = 0.9
		result.Cached = true
		return result
	}

	if similar := d.responseCache.GetSimilar(query, 1); len(similar) > 0 {
		result.Response = similar[0].Response
		result.Source = "cache_similar"
		result.Confidence = 0.7
		result.Cached = true
		result.SimilarQuery = similar[0].Query
		return result
	}

	if match, ok := d.patternMatcher.Match(query); ok {
		result.Command = match.Command
		result.Source = "pattern_matching"
		result.Confidence = match.Confidence
		result.Response = "Suggested command: " + match.Command
		return result
	}

	result.Source = "manual_mode"
	result.Confidence = 0.0
	result.Response = "I couldn't process this request automatically. " +
		"Please use apt commands directly:\n" +
		"  - apt search <package>  - Search for packages\n" +
		"  - apt show <package>    - Show package details\n" +
		"  - sudo apt install <package> - Install a package"
	return result
}

// Status is the degradation manager's current snapshot.
type Status struct {
	Mode         FallbackMode
	APIStatus    APIStatus
	APIFailures  int
	CacheEntries int64
	CacheHits    int64
	LastCheck    *time.Time
}

// GetStatus returns the current mode, last health check, and cache stats.
func (d *Degradation) GetStatus() Status {
	d.mu.Lock()
	mode := d.currentMode
	failures := d.apiFailures
	var apiStatus APIStatus = APIUnknown
	var lastCheck *time.Time
	if d.lastHealthCheck != nil {
		apiStatus = d.lastHealthCheck.Status
		t := d.lastHealthCheck.CheckedAt
		lastCheck = &t
	}
	d.mu.Unlock()

	stats, _ := d.responseCache.Stats()
	return Status{
		Mode:         mode,
		APIStatus:    apiStatus,
		APIFailures:  failures,
		CacheEntries: stats.TotalEntries,
		CacheHits:    stats.TotalHits,
		LastCheck:    lastCheck,
	}
}

// ForceMode overrides the operating mode, for tests and manual override.
func (d *Degradation) ForceMode(mode FallbackMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentMode = mode
}

// Reset clears failure count, mode, and last health check.
func (d *Degradation) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.apiFailures = 0
	d.currentMode = ModeFullAI
	d.lastHealthCheck = nil
}

// ClearOldEntries removes response-cache entries older than days.
func (d *Degradation) ClearOldEntries(days int) (int64, error) {
	return d.responseCache.ClearOldEntries(days)
}

// HashKey reuses the cache package's canonical hash() helper so
// response_cache and cache_entries hash queries identically.
var HashKey = cache.HashKey
