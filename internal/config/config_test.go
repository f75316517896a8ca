package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home dir: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Empty path
		{"empty", "", ""},

		// Absolute paths (unchanged except for cleaning)
		{"absolute path", "/usr/local/bin", "/usr/local/bin"},
		{"absolute with trailing slash", "/usr/local/bin/", "/usr/local/bin"},

		// Home expansion
		{"tilde only", "~", home},
		{"tilde with path", "~/documents", filepath.Join(home, "documents")},
		{"tilde nested", "~/a/b/c", filepath.Join(home, "a/b/c")},

		// Relative paths (cleaned but not made absolute)
		{"relative", "foo/bar", "foo/bar"},
		{"relative with dots", "foo/../bar", "bar"},
		{"relative with double dots", "./foo/./bar", "foo/bar"},

		// Path cleaning
		{"redundant slashes", "/usr//local///bin", "/usr/local/bin"},
		{"dot segments", "/usr/./local/../bin", "/usr/bin"},

		// Edge cases
		{"tilde in middle (not expanded)", "/home/~user", "/home/~user"},
		{"tilde not at start (not expanded)", "foo/~/bar", "foo/~/bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandPath(tt.input)
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name       string
		envKey     string
		envValue   string
		defaultVal int
		want       int
	}{
		{"empty env", "TEST_INT_EMPTY", "", 42, 42},
		{"valid int", "TEST_INT_VALID", "123", 42, 123},
		{"invalid int", "TEST_INT_INVALID", "not-a-number", 42, 42},
		{"negative int", "TEST_INT_NEG", "-5", 42, -5},
		{"zero", "TEST_INT_ZERO", "0", 42, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Set up environment
			if tt.envValue != "" {
				os.Setenv(tt.envKey, tt.envValue)
				defer os.Unsetenv(tt.envKey)
			} else {
				os.Unsetenv(tt.envKey)
			}

			got := getEnvInt(tt.envKey, tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvInt(%q, %d) = %d, want %d", tt.envKey, tt.defaultVal, got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		defaultVal bool
		want       bool
	}{
		{"empty env", "", true, true},
		{"true", "true", false, true},
		{"one", "1", false, true},
		{"false", "false", true, false},
		{"invalid", "sometimes", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)

			got := getEnvBool("TEST_BOOL", tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvBool(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"empty env", "", time.Minute},
		{"valid", "90s", 90 * time.Second},
		{"zero disables", "0s", 0},
		{"negative", "-5m", time.Minute},
		{"invalid", "soon", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)

			got := getEnvDuration("TEST_DURATION", time.Minute)
			if got != tt.want {
				t.Errorf("getEnvDuration(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvPaths(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		envKey   string
		envValue string
		want     []string
	}{
		{"empty env", "TEST_PATHS_EMPTY", "", nil},
		{"single path", "TEST_PATHS_SINGLE", "/home/user", []string{"/home/user"}},
		{"multiple paths", "TEST_PATHS_MULTI", "/home/user,/tmp", []string{"/home/user", "/tmp"}},
		{"with spaces", "TEST_PATHS_SPACES", "/home/user, /tmp , /var", []string{"/home/user", "/tmp", "/var"}},
		{"with tilde", "TEST_PATHS_TILDE", "~/documents,/tmp", []string{filepath.Join(home, "documents"), "/tmp"}},
		{"empty segments", "TEST_PATHS_EMPTSEG", "/home/user,,/tmp", []string{"/home/user", "/tmp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.envKey, tt.envValue)
				defer os.Unsetenv(tt.envKey)
			} else {
				os.Unsetenv(tt.envKey)
			}

			got := getEnvPaths(tt.envKey)

			if tt.want == nil && got != nil {
				t.Errorf("getEnvPaths(%q) = %v, want nil", tt.envKey, got)
				return
			}
			if len(got) != len(tt.want) {
				t.Errorf("getEnvPaths(%q) = %v (len=%d), want %v (len=%d)",
					tt.envKey, got, len(got), tt.want, len(tt.want))
				return
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("getEnvPaths(%q)[%d] = %q, want %q", tt.envKey, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("SONGBIRD_DB_PATH", "/tmp/songbird-test/db.sqlite")
	t.Setenv("SONGBIRD_WATCH_PATHS", "/music, /podcasts")
	t.Setenv("SONGBIRD_RESCAN_SCHEDULE", " 0 3 * * * ")
	t.Setenv("SONGBIRD_SCAN_TIMEOUT", "10m")
	t.Setenv("SONGBIRD_RESCAN_CONCURRENCY", "0")
	t.Setenv("SONGBIRD_SORT_RESULTS", "true")
	t.Setenv("SONGBIRD_HISTORY_RETENTION_DAYS", "7")

	cfg := Load()

	if cfg.DBPath != "/tmp/songbird-test/db.sqlite" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if len(cfg.WatchPaths) != 2 || cfg.WatchPaths[0] != "/music" || cfg.WatchPaths[1] != "/podcasts" {
		t.Errorf("WatchPaths = %v", cfg.WatchPaths)
	}
	if cfg.RescanSchedule != "0 3 * * *" {
		t.Errorf("RescanSchedule = %q", cfg.RescanSchedule)
	}
	if cfg.ScanTimeout != 10*time.Minute {
		t.Errorf("ScanTimeout = %v", cfg.ScanTimeout)
	}
	if cfg.RescanConcurrency != 1 {
		t.Errorf("RescanConcurrency = %d, want clamped to 1", cfg.RescanConcurrency)
	}
	if !cfg.SortResults {
		t.Error("SortResults should be true")
	}
	if cfg.RetentionDays != 7 || !cfg.RetentionDaysFromEnv {
		t.Errorf("RetentionDays = %d (fromEnv=%v), want 7 from env", cfg.RetentionDays, cfg.RetentionDaysFromEnv)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SONGBIRD_DB_PATH",
		"SONGBIRD_WATCH_PATHS",
		"SONGBIRD_RESCAN_SCHEDULE",
		"SONGBIRD_SCAN_TIMEOUT",
		"SONGBIRD_RESCAN_CONCURRENCY",
		"SONGBIRD_SORT_RESULTS",
		"SONGBIRD_HISTORY_RETENTION_DAYS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if filepath.Base(cfg.DBPath) != "songbird.db" {
		t.Errorf("DBPath = %q, want songbird.db under the data dir", cfg.DBPath)
	}
	if cfg.WatchPaths != nil {
		t.Errorf("WatchPaths = %v, want nil", cfg.WatchPaths)
	}
	if cfg.RescanSchedule != "" {
		t.Errorf("RescanSchedule = %q, want empty", cfg.RescanSchedule)
	}
	if cfg.ScanTimeout != 30*time.Minute {
		t.Errorf("ScanTimeout = %v, want 30m", cfg.ScanTimeout)
	}
	if cfg.RescanConcurrency != 2 {
		t.Errorf("RescanConcurrency = %d, want 2", cfg.RescanConcurrency)
	}
	if cfg.SortResults {
		t.Error("SortResults should default to false")
	}
	if cfg.RetentionDays != 30 || cfg.RetentionDaysFromEnv {
		t.Errorf("RetentionDays = %d (fromEnv=%v), want default 30", cfg.RetentionDays, cfg.RetentionDaysFromEnv)
	}
}
