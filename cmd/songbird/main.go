// Command songbird scans folders for audio files and manages the watched
// folders of the songbird library from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/lyallcooper/songbird/internal/app"
	"github.com/lyallcooper/songbird/internal/config"
	"github.com/lyallcooper/songbird/internal/library"
	"github.com/lyallcooper/songbird/internal/services"
	"github.com/lyallcooper/songbird/internal/types"
)

// Version info - injected at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const usage = `usage: songbird <command> [arguments]

commands:
  scan [-sort] [-quiet] [-list] <root>   scan a folder for audio files
  folders list [-paths]                  list watched folders
  folders add <path>                     watch a folder
  folders remove <id>                    stop watching a folder
  folders refresh                        rescan every watched folder
  history [-n count]                     show recent scans
  version                                print the version
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes a command and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "scan":
		err = runScan(ctx, args[1:], stdout, stderr)
	case "folders":
		err = runFolders(ctx, args[1:], stdout, stderr)
	case "history":
		err = runHistory(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, app.BuildVersionString(version, commit))
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "%v\n\n%s", err, usage)
			return 2
		}
		fmt.Fprintf(stderr, "songbird: %v\n", err)
		return 1
	}
	return 0
}

type usageError string

func (e usageError) Error() string { return string(e) }

// openServices initializes the application with logging sent to stderr only
// when verbose
func openServices(cfg *config.Config, verbose bool, stderr io.Writer) (*app.Services, error) {
	if verbose {
		log.SetOutput(stderr)
	} else {
		log.SetOutput(io.Discard)
	}
	return app.New(app.Options{Config: cfg, Version: version, Commit: commit})
}

func runScan(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("scan", flag.ContinueOnError)
	flags.SetOutput(stderr)
	sorted := flags.Bool("sort", false, "sort results by path")
	quiet := flags.Bool("quiet", false, "do not show progress")
	list := flags.Bool("list", false, "print the path of every file found")
	verbose := flags.Bool("v", false, "verbose logging")
	if err := flags.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if flags.NArg() != 1 {
		return usageError("scan needs exactly one folder")
	}
	// The host filesystem is rooted at /, so relative roots need resolving
	root, err := filepath.Abs(flags.Arg(0))
	if err != nil {
		return err
	}

	cfg := config.Load()
	cfg.SortResults = cfg.SortResults || *sorted

	svc, err := openServices(cfg, *verbose, stderr)
	if err != nil {
		return err
	}
	defer svc.Cleanup()

	var sink services.ProgressSink
	var wait func()
	if !*quiet {
		sink, wait = progressSink(stderr, "scanning")
	}

	start := time.Now()
	files, err := svc.Scanner.Scan(ctx, root, sink)
	if wait != nil {
		wait()
	}
	if err != nil && !errors.Is(err, library.ErrCancelled) {
		return err
	}

	if *list {
		for _, f := range files {
			fmt.Fprintln(stdout, f.Path)
		}
	}
	fmt.Fprintln(stdout, summarize(root, files, time.Since(start)))
	return err
}

// progressSink renders scan progress as a terminal bar. The returned wait
// function closes the sink and blocks until rendering has finished.
func progressSink(w io.Writer, description string) (services.ProgressSink, func()) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	sink := services.NewChannelSink(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range sink.Updates() {
			switch p.Phase {
			case types.PhaseCounting:
				bar.ChangeMax(p.Total)
			case types.PhaseScanning:
				_ = bar.Set(p.Processed)
				bar.Describe(fmt.Sprintf("%s %s", description, p.CurrentFile))
			case types.PhaseComplete:
				_ = bar.Finish()
			}
		}
	}()

	return sink, func() {
		sink.Close()
		<-done
	}
}

// summarize describes a scan result in one line
func summarize(root string, files []types.DiscoveredFile, elapsed time.Duration) string {
	var size uint64
	for _, f := range files {
		size += uint64(len(f.Data))
	}
	noun := "files"
	if len(files) == 1 {
		noun = "file"
	}
	return fmt.Sprintf("Found %s audio %s in %s (%s read, %s)",
		humanize.Comma(int64(len(files))), noun, root,
		humanize.Bytes(size), elapsed.Round(time.Millisecond))
}

func runFolders(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return usageError("folders needs a subcommand")
	}

	flags := flag.NewFlagSet("folders "+args[0], flag.ContinueOnError)
	flags.SetOutput(stderr)
	verbose := flags.Bool("v", false, "verbose logging")
	pathsOnly := flags.Bool("paths", false, "list only folder paths")
	if err := flags.Parse(args[1:]); err != nil {
		return usageError(err.Error())
	}

	svc, err := openServices(nil, *verbose, stderr)
	if err != nil {
		return err
	}
	defer svc.Cleanup()

	switch args[0] {
	case "list":
		folders, err := svc.Library.Folders()
		if err != nil {
			return err
		}
		if *pathsOnly {
			for _, path := range services.FolderPaths(folders) {
				fmt.Fprintln(stdout, path)
			}
			return nil
		}
		if len(folders) == 0 {
			fmt.Fprintln(stdout, "No watched folders")
			return nil
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPATH\tSONGS\tLAST SCANNED")
		for _, f := range folders {
			scanned := "never"
			if f.LastScannedAt != nil {
				scanned = humanize.Time(*f.LastScannedAt)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Path, humanize.Comma(int64(f.SongCount)), scanned)
		}
		return tw.Flush()

	case "add":
		if flags.NArg() != 1 {
			return usageError("folders add needs exactly one path")
		}
		folder, err := svc.Library.AddFolder(flags.Arg(0))
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Watching %s (%s)\n", folder.Path, folder.ID)
		return nil

	case "remove":
		if flags.NArg() != 1 {
			return usageError("folders remove needs exactly one id")
		}
		if err := svc.Library.RemoveFolder(flags.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Removed %s\n", flags.Arg(0))
		return nil

	case "refresh":
		start := time.Now()
		summary, err := svc.Library.RescanAll(ctx, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Rescanned %s folders, found %s audio files in %s\n",
			humanize.Comma(int64(summary.Folders)), humanize.Comma(int64(summary.FilesFound)),
			time.Since(start).Round(time.Millisecond))
		if len(summary.Failed) > 0 {
			fmt.Fprintf(stdout, "Could not scan %d of %d:\n", len(summary.Failed), summary.Folders)
			for _, path := range summary.Failed {
				fmt.Fprintf(stdout, "  %s\n", path)
			}
		}
		return nil

	default:
		return usageError(fmt.Sprintf("unknown folders subcommand %q", args[0]))
	}
}

func runHistory(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("history", flag.ContinueOnError)
	flags.SetOutput(stderr)
	limit := flags.Int("n", 20, "number of scans to show")
	verbose := flags.Bool("v", false, "verbose logging")
	if err := flags.Parse(args); err != nil {
		return usageError(err.Error())
	}

	svc, err := openServices(nil, *verbose, stderr)
	if err != nil {
		return err
	}
	defer svc.Cleanup()

	runs, err := svc.Database.ListScanRuns(*limit, 0)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No scans yet")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tFILES\tROOT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			humanize.Time(r.StartedAt), r.Status, humanize.Comma(int64(r.Processed)), r.Root)
	}
	return tw.Flush()
}
