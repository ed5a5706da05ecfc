// Package config centralizes environment-driven configuration. Adapters and
// repositories never read the environment themselves; everything is injected
// through these structs so tests can substitute fixtures.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// KeywordsURI points at the keyword list (file:// or s3://). When empty
	// or unreadable, the built-in default list is used.
	KeywordsURI string

	// Forum source (Discourse-style search API).
	ForumBaseURL string

	// Video source (YouTube Data API style).
	VideoBaseURL string
	VideoAPIKey  string

	// Trend source (relative interest over time).
	TrendsBaseURL    string
	TrendsCountries  []string
	TrendsWindowDays int

	// SeenCacheDir is the badger directory for the source-native ID cache.
	// Empty means a fresh in-memory cache per run.
	SeenCacheDir string
	SeenCacheTTL time.Duration

	// Pacing between successive calls to one source.
	ItemDelay time.Duration
	PageDelay time.Duration

	// RunTimeout bounds one orchestration pass.
	RunTimeout time.Duration

	LogDir string
}

// FromEnv loads configuration from environment variables with defaults.
func FromEnv() Config {
	return Config{
		KeywordsURI:      os.Getenv("KEYWORDS_URI"),
		ForumBaseURL:     getEnv("FORUM_BASE_URL", "https://community.n8n.io"),
		VideoBaseURL:     getEnv("VIDEO_BASE_URL", "https://www.googleapis.com/youtube/v3"),
		VideoAPIKey:      os.Getenv("YOUTUBE_API_KEY"),
		TrendsBaseURL:    getEnv("TRENDS_BASE_URL", "http://localhost:8700"),
		TrendsCountries:  splitList(getEnv("TRENDS_COUNTRIES", "US,IN,DE,GB")),
		TrendsWindowDays: getEnvInt("TRENDS_WINDOW_DAYS", 30),
		SeenCacheDir:     os.Getenv("SEEN_CACHE_DIR"),
		SeenCacheTTL:     getEnvDuration("SEEN_CACHE_TTL", 24*time.Hour),
		ItemDelay:        getEnvDuration("SOURCE_ITEM_DELAY", 200*time.Millisecond),
		PageDelay:        getEnvDuration("SOURCE_PAGE_DELAY", 1*time.Second),
		RunTimeout:       getEnvDuration("RUN_TIMEOUT", 2*time.Hour),
		LogDir:           getEnv("LOG_DIR", "logs"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
