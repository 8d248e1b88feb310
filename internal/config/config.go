package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// HTTP API
	ServerPort string
	AdminKey   string

	// Browser automation
	BrowserURL     string // remote devtools URL; empty launches a local headless browser
	RenderTimeout  time.Duration
	NetworkSettle  time.Duration

	// Scraping
	SitesFile    string // optional override for the embedded site profiles
	ProbeTimeout time.Duration

	// Job lifecycle
	SweepInterval time.Duration
	GraceWindow   time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "dealsync"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "inventory"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		ServerPort: getEnv("DEALSYNC_PORT", "8585"),
		AdminKey:   getEnv("DEALSYNC_ADMIN_KEY", ""),

		BrowserURL:    getEnv("DEALSYNC_BROWSER_URL", ""),
		RenderTimeout: getDuration("DEALSYNC_RENDER_TIMEOUT", 60*time.Second),
		NetworkSettle: getDuration("DEALSYNC_NETWORK_SETTLE", 2*time.Second),

		SitesFile:    getEnv("DEALSYNC_SITES_FILE", ""),
		ProbeTimeout: getDuration("DEALSYNC_PROBE_TIMEOUT", 10*time.Second),

		SweepInterval: getDuration("DEALSYNC_SWEEP_INTERVAL", 60*time.Second),
		GraceWindow:   getDuration("DEALSYNC_GRACE_WINDOW", 2*time.Minute),

		LogFile:  getEnv("DEALSYNC_LOG_FILE", "/tmp/dealsync.log"),
		LogLevel: parseLogLevel(getEnv("DEALSYNC_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	// Bare numbers are read as seconds.
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
