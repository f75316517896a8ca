// Package app provides shared application initialization logic used by both
// the CLI and desktop (Wails) entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/lyallcooper/songbird/internal/config"
	"github.com/lyallcooper/songbird/internal/db"
	"github.com/lyallcooper/songbird/internal/scheduler"
	"github.com/lyallcooper/songbird/internal/services"
)

// Options contains options for creating the application services.
type Options struct {
	// Config overrides environment configuration. If nil, config.Load() is used.
	Config *config.Config

	// FS is the filesystem scanned. Defaults to the host filesystem.
	FS billy.Filesystem

	// Version string for display.
	Version string

	// Commit hash for display.
	Commit string
}

// Services wraps the database and the services built on it.
type Services struct {
	Config    *config.Config
	Database  *db.DB
	FS        billy.Filesystem
	Scanner   *services.Scanner
	Library   *services.Library
	Scheduler *scheduler.Scheduler
	Version   string
}

// New initializes all application components.
// Call Services.Cleanup() when done to release resources.
func New(opts Options) (*Services, error) {
	appCfg := opts.Config
	if appCfg == nil {
		appCfg = config.Load()
	}
	fs := opts.FS
	if fs == nil {
		fs = osfs.New("/")
	}

	log.Printf("songbird starting...")
	log.Printf("  Database: %s", appCfg.DBPath)

	database, err := db.Open(appCfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Load retention from DB if not set via env var
	if !appCfg.RetentionDaysFromEnv {
		if val, err := database.GetSetting("retention_days"); err == nil && val != "" {
			if days, err := strconv.Atoi(val); err == nil && days >= 1 && days <= 365 {
				appCfg.RetentionDays = days
			}
		}
	}
	log.Printf("  Retention: %d days", appCfg.RetentionDays)

	scanner := services.NewScanner(fs, database,
		services.WithScanTimeout(appCfg.ScanTimeout),
		services.WithSortedResults(appCfg.SortResults),
	)
	library := services.NewLibrary(database, fs, scanner, appCfg.RescanConcurrency)

	for _, path := range appCfg.WatchPaths {
		if _, err := library.AddFolder(path); err != nil && !errors.Is(err, db.ErrDuplicate) {
			log.Printf("Warning: could not watch %s: %v", path, err)
		}
	}

	return &Services{
		Config:   appCfg,
		Database: database,
		FS:       fs,
		Scanner:  scanner,
		Library:  library,
		Version:  BuildVersionString(opts.Version, opts.Commit),
	}, nil
}

// StartScheduler starts background rescans if a schedule is configured.
// Progress from scheduled rescans goes to sink.
func (s *Services) StartScheduler(sink services.ProgressSink) error {
	if s.Config.RescanSchedule == "" {
		return nil
	}
	sched, err := scheduler.New(s.Library, s.Database, s.Config.RescanSchedule, sink)
	if err != nil {
		return err
	}
	s.Scheduler = sched
	sched.Start()
	log.Printf("  Rescan schedule: %s", s.Config.RescanSchedule)
	return nil
}

// Cleanup releases all resources held by the services.
func (s *Services) Cleanup() {
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	if s.Scanner != nil {
		s.Scanner.Shutdown()
	}
	if s.Database != nil {
		s.Database.Close()
	}
}

// StartCleanupLoop starts a background goroutine that periodically removes
// old scan history. Returns a cancel function and a done channel.
func (s *Services) StartCleanupLoop() (cancel func(), done <-chan struct{}) {
	cleanupDone := make(chan struct{})
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())

	go func() {
		defer close(cleanupDone)
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				s.cleanupHistory()
			}
		}
	}()

	return cleanupCancel, cleanupDone
}

func (s *Services) cleanupHistory() {
	log.Printf("Running cleanup (retention: %d days)", s.Config.RetentionDays)
	if err := s.Database.CleanupOldData(s.Config.RetentionDays); err != nil {
		log.Printf("Cleanup error: %v", err)
	}
}

// BuildVersionString creates a display version string.
func BuildVersionString(version, commit string) string {
	if version == "" {
		version = "dev"
	}
	if strings.HasPrefix(version, "v") {
		return version
	}
	shortCommit := commit
	if len(shortCommit) > 7 {
		shortCommit = shortCommit[:7]
	}
	if shortCommit == "" {
		shortCommit = "unknown"
	}
	return version + "-" + shortCommit
}
