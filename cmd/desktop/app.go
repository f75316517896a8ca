package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/wailsapp/wails/v2/pkg/options"
	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/lyallcooper/songbird/internal/app"
	"github.com/lyallcooper/songbird/internal/db"
	"github.com/lyallcooper/songbird/internal/fileassoc"
	"github.com/lyallcooper/songbird/internal/files"
	"github.com/lyallcooper/songbird/internal/services"
	"github.com/lyallcooper/songbird/internal/types"
)

// Events emitted to the frontend
const (
	EventScanProgress = "scan-progress"
	EventOpenFiles    = "open-files"
)

// progressBuffer is how many progress events may wait for the frontend
const progressBuffer = 256

// App struct holds the Wails application context and provides
// methods that can be called from the frontend.
type App struct {
	ctx      context.Context
	services *app.Services
	queue    *fileassoc.Queue
	progress *services.ChannelSink
	emit     func(event string, data ...interface{})
	raise    func()
	started  bool
	done     chan struct{}
}

// NewApp creates a new App instance.
func NewApp(svc *app.Services) *App {
	return &App{
		services: svc,
		queue:    fileassoc.NewQueue(svc.FS),
		progress: services.NewChannelSink(progressBuffer),
		done:     make(chan struct{}),
	}
}

// startup is called when the app starts.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if a.emit == nil {
		a.emit = func(event string, data ...interface{}) {
			wailsruntime.EventsEmit(ctx, event, data...)
		}
	}
	if a.raise == nil {
		a.raise = func() {
			wailsruntime.WindowUnminimise(ctx)
			wailsruntime.Show(ctx)
		}
	}
	a.started = true
	go a.forwardProgress()
}

// shutdown stops progress delivery and drains queued events. Scans still
// running afterwards drop their progress.
func (a *App) shutdown() {
	a.progress.Close()
	if a.started {
		<-a.done
	}
}

// forwardProgress relays scan progress to the frontend off the scan's path
func (a *App) forwardProgress() {
	defer close(a.done)
	for p := range a.progress.Updates() {
		a.emit(EventScanProgress, p)
	}
}

// ScanFolder discovers the audio files under root. Progress is emitted as
// scan-progress events tagged with the scan's run ID.
func (a *App) ScanFolder(root string) ([]types.DiscoveredFile, error) {
	return a.services.Scanner.Scan(a.ctx, root, a.progress)
}

// CancelScan cancels a running scan by run ID.
func (a *App) CancelScan(runID string) bool {
	return a.services.Scanner.CancelScan(runID)
}

// ReadAudioFile returns the full contents of a file.
func (a *App) ReadAudioFile(path string) ([]byte, error) {
	return files.ReadFile(a.services.FS, path)
}

// WriteFile creates or overwrites a file.
func (a *App) WriteFile(path string, data []byte) error {
	return files.WriteFile(a.services.FS, path, data)
}

// GetPendingFiles returns and clears the files the app was asked to open
// before the frontend was ready.
func (a *App) GetPendingFiles() []string {
	return a.queue.Drain()
}

// FrontendReady is called by the frontend once it is listening for
// open-files events. Queued files are pushed immediately.
func (a *App) FrontendReady() {
	a.queue.Ready(func(paths []string) {
		a.emit(EventOpenFiles, paths)
	})
}

// AddWatchedFolder starts watching a folder.
func (a *App) AddWatchedFolder(path string) (*db.WatchedFolder, error) {
	return a.services.Library.AddFolder(path)
}

// RemoveWatchedFolder stops watching a folder.
func (a *App) RemoveWatchedFolder(id string) error {
	return a.services.Library.RemoveFolder(id)
}

// ListWatchedFolders lists the watched folders.
func (a *App) ListWatchedFolders() ([]*db.WatchedFolder, error) {
	return a.services.Library.Folders()
}

// RescanWatchedFolder rescans one watched folder and returns its files.
func (a *App) RescanWatchedFolder(id string) ([]types.DiscoveredFile, error) {
	return a.services.Library.RescanFolder(a.ctx, id, a.progress)
}

// RefreshWatchedFolders rescans every watched folder.
func (a *App) RefreshWatchedFolders() (*services.RescanSummary, error) {
	return a.services.Library.RescanAll(a.ctx, a.progress)
}

// ScanHistory returns the most recent scan runs.
func (a *App) ScanHistory(limit int) ([]*db.ScanRun, error) {
	if limit <= 0 {
		limit = 50
	}
	return a.services.Database.ListScanRuns(limit, 0)
}

// enqueueLaunchArgs queues files passed to this launch, resolving relative
// paths against the working directory.
func (a *App) enqueueLaunchArgs(args []string) []string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	return a.queue.Enqueue(resolveArgs(cwd, args)...)
}

// onSecondInstance handles files passed to a second launch of the app.
func (a *App) onSecondInstance(data options.SecondInstanceData) {
	a.queue.Enqueue(resolveArgs(data.WorkingDirectory, data.Args)...)
	if a.raise != nil {
		a.raise()
	}
}

// resolveArgs makes relative arguments absolute against dir
func resolveArgs(dir string, args []string) []string {
	resolved := make([]string, 0, len(args))
	for _, arg := range args {
		if dir != "" && !filepath.IsAbs(arg) {
			arg = filepath.Join(dir, arg)
		}
		resolved = append(resolved, arg)
	}
	return resolved
}

// OpenInFileManager opens the system file manager at the specified path.
// This can be called from the frontend to reveal files/folders.
func (a *App) OpenInFileManager(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", "-R", path) // -R reveals in Finder
	case "windows":
		cmd = exec.Command("explorer", "/select,", path)
	default: // Linux
		cmd = exec.Command("xdg-open", filepath.Dir(path))
	}
	return cmd.Start()
}

// OpenFolder opens a folder in the system file manager.
func (a *App) OpenFolder(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", path)
	default: // Linux
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}
