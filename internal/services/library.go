package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/lyallcooper/songbird/internal/db"
	"github.com/lyallcooper/songbird/internal/library"
	"github.com/lyallcooper/songbird/internal/types"
)

// DefaultRescanConcurrency is how many watched folders are rescanned at once
const DefaultRescanConcurrency = 2

// RescanSummary reports the outcome of rescanning every watched folder
type RescanSummary struct {
	Folders    int      `json:"folders"`
	FilesFound int      `json:"filesFound"`
	Failed     []string `json:"failed"`
}

// Library manages the set of watched folders and their rescans
type Library struct {
	db          *db.DB
	fs          billy.Filesystem
	scanner     *Scanner
	concurrency int
}

// NewLibrary creates a watched-folder library
func NewLibrary(database *db.DB, fs billy.Filesystem, scanner *Scanner, concurrency int) *Library {
	if concurrency < 1 {
		concurrency = DefaultRescanConcurrency
	}
	return &Library{
		db:          database,
		fs:          fs,
		scanner:     scanner,
		concurrency: concurrency,
	}
}

// AddFolder starts watching path. The folder must exist; watching the same
// path twice fails with db.ErrDuplicate.
func (l *Library) AddFolder(path string) (*db.WatchedFolder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watched folder %s: %w", path, err)
	}

	info, err := l.fs.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("watched folder %s: %w", abs, library.ErrNotFound)
		}
		return nil, fmt.Errorf("watched folder %s: %w: %v", abs, library.ErrUnreadable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watched folder %s is not a directory: %w", abs, library.ErrNotFound)
	}

	folder, err := l.db.CreateWatchedFolder(&db.WatchedFolder{
		ID:      uuid.NewString(),
		Path:    abs,
		Name:    filepath.Base(abs),
		AddedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	log.Printf("library: watching %s", abs)
	return folder, nil
}

// RemoveFolder stops watching a folder. Its scan history is kept.
func (l *Library) RemoveFolder(id string) error {
	if err := l.db.DeleteWatchedFolder(id); err != nil {
		return fmt.Errorf("remove watched folder %s: %w", id, err)
	}
	return nil
}

// Folders lists the watched folders
func (l *Library) Folders() ([]*db.WatchedFolder, error) {
	return l.db.ListWatchedFolders()
}

// RescanFolder scans one watched folder and records its song count
func (l *Library) RescanFolder(ctx context.Context, id string, sink ProgressSink) ([]types.DiscoveredFile, error) {
	folder, err := l.db.GetWatchedFolder(id)
	if err != nil {
		return nil, fmt.Errorf("watched folder %s: %w", id, err)
	}
	return l.rescan(ctx, folder, sink)
}

// RescanAll scans every watched folder, a few at a time. A folder that fails
// is logged and skipped; only cancellation of ctx fails the whole rescan.
func (l *Library) RescanAll(ctx context.Context, sink ProgressSink) (*RescanSummary, error) {
	folders, err := l.db.ListWatchedFolders()
	if err != nil {
		return nil, fmt.Errorf("list watched folders: %w", err)
	}

	summary := &RescanSummary{Folders: len(folders), Failed: []string{}}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(l.concurrency)
	for _, folder := range folders {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			files, err := l.rescan(ctx, folder, sink)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("library: failed to rescan %s: %v", folder.Path, err)
				summary.Failed = append(summary.Failed, folder.Path)
				return nil
			}
			summary.FilesFound += len(files)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("rescan: %w: %w", library.ErrCancelled, err)
	}

	log.Printf("library: rescanned %d folders, %d files found, %d failed",
		summary.Folders, summary.FilesFound, len(summary.Failed))
	return summary, nil
}

func (l *Library) rescan(ctx context.Context, folder *db.WatchedFolder, sink ProgressSink) ([]types.DiscoveredFile, error) {
	files, err := l.scanner.ScanWatched(ctx, folder, sink)
	if err != nil {
		return files, err
	}
	if err := l.db.UpdateFolderScan(folder.ID, time.Now(), len(files)); err != nil {
		log.Printf("library: failed to record scan of %s: %v", folder.Path, err)
	}
	return files, nil
}

// FolderPaths returns the paths of the given folders
func FolderPaths(folders []*db.WatchedFolder) []string {
	return lo.Map(folders, func(f *db.WatchedFolder, _ int) string {
		return f.Path
	})
}
