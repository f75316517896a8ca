package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"github.com/lyallcooper/songbird/internal/db"
	"github.com/lyallcooper/songbird/internal/library"
	"github.com/lyallcooper/songbird/internal/types"
)

// DefaultBatchSize is how many files are read between scanning-phase events
const DefaultBatchSize = 10

// RunStore records scan run history. *db.DB implements it.
type RunStore interface {
	CreateScanRun(id string, folderID *string, root string) (*db.ScanRun, error)
	UpdateScanRunProgress(id string, total, processed int) error
	CompleteScanRun(id string, status db.ScanRunStatus, errorMsg *string) error
}

var _ RunStore = (*db.DB)(nil)

// Scanner orchestrates scan operations: count, walk, report, collect
type Scanner struct {
	fs          billy.Filesystem
	walker      *library.Walker
	runs        RunStore
	batchSize   int
	sortResults bool
	scanTimeout time.Duration

	// Active scans and their cancellation functions
	mu          sync.RWMutex
	activeScans map[string]context.CancelFunc
	closed      bool
	wg          sync.WaitGroup
}

// Option configures a Scanner
type Option func(*Scanner)

// WithBatchSize sets how many files are read between scanning-phase events
func WithBatchSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithSortedResults sorts each scan's result list by path before returning it
func WithSortedResults(sorted bool) Option {
	return func(s *Scanner) {
		s.sortResults = sorted
	}
}

// WithScanTimeout bounds how long a single scan may run. Zero means no limit.
func WithScanTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.scanTimeout = d
	}
}

// NewScanner creates a scanner over fs. runs may be nil to skip history.
func NewScanner(fs billy.Filesystem, runs RunStore, opts ...Option) *Scanner {
	s := &Scanner{
		fs:          fs,
		walker:      library.NewWalker(fs),
		runs:        runs,
		batchSize:   DefaultBatchSize,
		activeScans: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan discovers the audio files under root, reporting progress to sink.
//
// A missing root fails with library.ErrNotFound before any event is sent.
// Unreadable entries below the root are skipped silently. If ctx is
// cancelled, or the scan is cancelled with CancelScan, Scan returns the files
// collected so far with an error wrapping library.ErrCancelled.
func (s *Scanner) Scan(ctx context.Context, root string, sink ProgressSink) ([]types.DiscoveredFile, error) {
	return s.scan(ctx, root, nil, sink)
}

// ScanWatched scans a watched folder, linking the run to it in the history
func (s *Scanner) ScanWatched(ctx context.Context, folder *db.WatchedFolder, sink ProgressSink) ([]types.DiscoveredFile, error) {
	return s.scan(ctx, folder.Path, &folder.ID, sink)
}

// CancelScan cancels an active scan. It reports whether the scan was found.
func (s *Scanner) CancelScan(runID string) bool {
	s.mu.RLock()
	cancel, ok := s.activeScans[runID]
	s.mu.RUnlock()

	if ok {
		cancel()
	}
	return ok
}

// Shutdown cancels every active scan and waits for them to return. Scans
// started afterwards fail with library.ErrCancelled.
func (s *Scanner) Shutdown() {
	s.mu.Lock()
	s.closed = true
	for _, cancel := range s.activeScans {
		cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scanner) scan(ctx context.Context, root string, folderID *string, sink ProgressSink) ([]types.DiscoveredFile, error) {
	if sink == nil {
		sink = discardSink{}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("scan of %s: %w", root, library.ErrCancelled)
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	runID := uuid.NewString()

	if _, err := s.fs.Stat(root); err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("scan root %s: %w", root, library.ErrNotFound)
		} else {
			err = fmt.Errorf("scan root %s: %w: %v", root, library.ErrUnreadable, err)
		}
		s.recordStart(runID, folderID, root)
		s.recordEnd(runID, db.ScanRunStatusFailed, 0, 0, err)
		return nil, err
	}

	var cancel context.CancelFunc
	if s.scanTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.scanTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	s.mu.Lock()
	s.activeScans[runID] = cancel
	if s.closed {
		cancel()
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.activeScans, runID)
		s.mu.Unlock()
	}()

	s.recordStart(runID, folderID, root)

	total, err := s.walker.Count(ctx, root)
	if err != nil {
		return nil, s.stopped(runID, root, 0, 0, err)
	}
	sink.Send(&types.ScanProgress{
		RunID: runID,
		Phase: types.PhaseCounting,
		Total: total,
	})

	files := make([]types.DiscoveredFile, 0, total)
	processed := 0
	err = s.walker.Walk(ctx, root, func(f types.DiscoveredFile) error {
		files = append(files, f)
		processed++
		if processed%s.batchSize == 0 || processed == total {
			sink.Send(&types.ScanProgress{
				RunID:       runID,
				Phase:       types.PhaseScanning,
				Total:       total,
				Processed:   processed,
				CurrentFile: f.Name,
			})
		}
		return nil
	})
	if err != nil {
		return files, s.stopped(runID, root, total, processed, err)
	}

	// Count and walk can disagree if the tree changed in between; the
	// complete event reports what was actually read.
	sink.Send(&types.ScanProgress{
		RunID:     runID,
		Phase:     types.PhaseComplete,
		Total:     total,
		Processed: processed,
	})

	if s.sortResults {
		sort.Slice(files, func(i, j int) bool {
			return files[i].Path < files[j].Path
		})
	}

	s.recordEnd(runID, db.ScanRunStatusCompleted, total, processed, nil)
	log.Printf("scanner: run %s found %d audio files under %s", runID, processed, root)

	return files, nil
}

// stopped records and wraps a scan that ended early
func (s *Scanner) stopped(runID, root string, total, processed int, cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		err := fmt.Errorf("scan of %s: %w: %w", root, library.ErrCancelled, cause)
		s.recordEnd(runID, db.ScanRunStatusCancelled, total, processed, err)
		log.Printf("scanner: run %s cancelled after %d files", runID, processed)
		return err
	}
	err := fmt.Errorf("scan of %s: %w", root, cause)
	s.recordEnd(runID, db.ScanRunStatusFailed, total, processed, err)
	return err
}

func (s *Scanner) recordStart(runID string, folderID *string, root string) {
	if s.runs == nil {
		return
	}
	if _, err := s.runs.CreateScanRun(runID, folderID, root); err != nil {
		log.Printf("scanner: failed to record scan run %s: %v", runID, err)
	}
}

func (s *Scanner) recordEnd(runID string, status db.ScanRunStatus, total, processed int, scanErr error) {
	if s.runs == nil {
		return
	}
	if err := s.runs.UpdateScanRunProgress(runID, total, processed); err != nil {
		log.Printf("scanner: failed to update scan run %s: %v", runID, err)
	}
	var errMsg *string
	if scanErr != nil {
		msg := scanErr.Error()
		errMsg = &msg
	}
	if err := s.runs.CompleteScanRun(runID, status, errMsg); err != nil {
		log.Printf("scanner: failed to complete scan run %s: %v", runID, err)
	}
}
