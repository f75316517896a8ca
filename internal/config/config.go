package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Config holds all application configuration
type Config struct {
	DBPath            string
	WatchPaths        []string // Folders watched on every launch
	RescanSchedule    string   // Cron expression; empty disables background rescans
	ScanTimeout       time.Duration
	RescanConcurrency int
	SortResults       bool
	RetentionDays     int
	// RetentionDaysFromEnv is set when SONGBIRD_HISTORY_RETENTION_DAYS
	// overrides the stored setting
	RetentionDaysFromEnv bool
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		DBPath:            ExpandPath(getEnv("SONGBIRD_DB_PATH", defaultDBPath())),
		WatchPaths:        getEnvPaths("SONGBIRD_WATCH_PATHS"),
		RescanSchedule:    strings.TrimSpace(getEnv("SONGBIRD_RESCAN_SCHEDULE", "")),
		ScanTimeout:       getEnvDuration("SONGBIRD_SCAN_TIMEOUT", 30*time.Minute),
		RescanConcurrency: getEnvInt("SONGBIRD_RESCAN_CONCURRENCY", 2),
		SortResults:       getEnvBool("SONGBIRD_SORT_RESULTS", false),
		RetentionDays:     getEnvInt("SONGBIRD_HISTORY_RETENTION_DAYS", 30),
	}
	cfg.RetentionDaysFromEnv = os.Getenv("SONGBIRD_HISTORY_RETENTION_DAYS") != ""

	if cfg.RescanConcurrency < 1 {
		cfg.RescanConcurrency = 1
	}

	return cfg
}

func defaultDBPath() string {
	return filepath.Join(xdg.DataHome, "songbird", "songbird.db")
}

// ExpandPath expands a leading ~ to the user's home directory and cleans
// the result. Relative paths stay relative.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return filepath.Clean(path)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d >= 0 {
			return d
		}
	}
	return defaultVal
}

// getEnvPaths parses a comma-separated list of paths
func getEnvPaths(key string) []string {
	var paths []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			paths = append(paths, ExpandPath(p))
		}
	}
	return paths
}
