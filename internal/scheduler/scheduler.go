package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lyallcooper/songbird/internal/services"
)

// nextRunKey is the settings key holding the next background rescan time
const nextRunKey = "next_rescan_at"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Rescanner rescans every watched folder. *services.Library implements it.
type Rescanner interface {
	RescanAll(ctx context.Context, sink services.ProgressSink) (*services.RescanSummary, error)
}

// SettingsStore persists scheduler state between launches. *db.DB implements it.
type SettingsStore interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// ParseSchedule validates a five-field cron expression (or a descriptor such
// as @daily)
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid rescan schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// Scheduler rescans the watched folders on a cron schedule
type Scheduler struct {
	library  Rescanner
	settings SettingsStore
	sink     services.ProgressSink
	schedule cron.Schedule
	tick     time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	running  bool
	busy     bool
	nextRun  time.Time
	lastRun  time.Time
	stopChan chan struct{}
	cancel   context.CancelFunc // Cancel function for a running rescan
	wg       sync.WaitGroup     // Tracks spawned rescan goroutines
}

// New creates a scheduler for the given cron expression. settings and sink
// may be nil.
func New(library Rescanner, settings SettingsStore, expr string, sink services.ProgressSink) (*Scheduler, error) {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		library:  library,
		settings: settings,
		sink:     sink,
		schedule: schedule,
		tick:     time.Minute,
		now:      time.Now,
	}, nil
}

// Start starts the scheduler. A rescan missed while the app was closed runs
// right away.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.nextRun = s.loadNextRun()

	// Create cancellable context for spawned rescans
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	log.Printf("scheduler: next rescan at %v", s.NextRun())
	go s.run(ctx)
}

// Stop stops the scheduler and waits for a running rescan to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)

	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// NextRun returns when the next rescan is due
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRun
}

// LastRun returns when the last rescan started, or the zero time
func (s *Scheduler) LastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	// Check immediately on start
	s.checkDue(ctx)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.checkDue(ctx)
		}
	}
}

// checkDue starts a rescan if one is due and none is in progress. Nothing
// starts once Stop has been called.
func (s *Scheduler) checkDue(ctx context.Context) {
	s.mu.Lock()
	now := s.now()
	if !s.running || s.busy || now.Before(s.nextRun) {
		s.mu.Unlock()
		return
	}
	s.busy = true
	s.lastRun = now
	s.nextRun = s.schedule.Next(now)
	next := s.nextRun
	s.wg.Add(1)
	s.mu.Unlock()

	s.storeNextRun(next)
	go s.runRescan(ctx)
}

func (s *Scheduler) runRescan(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	if ctx.Err() != nil {
		log.Printf("scheduler: rescan cancelled before start")
		return
	}

	log.Printf("scheduler: starting background rescan")
	summary, err := s.library.RescanAll(ctx, s.sink)
	if err != nil {
		log.Printf("scheduler: rescan failed: %v", err)
		return
	}
	log.Printf("scheduler: rescan found %d files in %d folders, next run at %v",
		summary.FilesFound, summary.Folders, s.NextRun())
}

// loadNextRun returns the stored next run time, unless the current schedule
// fires sooner
func (s *Scheduler) loadNextRun() time.Time {
	next := s.schedule.Next(s.now())
	if s.settings != nil {
		val, err := s.settings.GetSetting(nextRunKey)
		if err != nil {
			log.Printf("scheduler: failed to load next run: %v", err)
		} else if val != "" {
			if stored, err := time.Parse(time.RFC3339, val); err == nil && stored.Before(next) {
				return stored
			}
		}
	}
	s.storeNextRun(next)
	return next
}

func (s *Scheduler) storeNextRun(next time.Time) {
	if s.settings == nil {
		return
	}
	if err := s.settings.SetSetting(nextRunKey, next.UTC().Format(time.RFC3339)); err != nil {
		log.Printf("scheduler: failed to store next run: %v", err)
	}
}
