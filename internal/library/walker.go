package library

import (
	"context"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"

	"github.com/lyallcooper/songbird/internal/types"
)

// PrefixLimit is the maximum number of leading bytes captured per file.
const PrefixLimit = 256 * 1024

// Walker enumerates a directory tree and yields audio files with their
// leading bytes. It is a pure traversal primitive: accumulation and progress
// are the caller's concern.
type Walker struct {
	fs billy.Filesystem
}

// NewWalker creates a walker over the given filesystem
func NewWalker(fs billy.Filesystem) *Walker {
	return &Walker{fs: fs}
}

// Walk visits root depth-first in directory-listing order and calls fn once
// for every audio file whose prefix could be read. Unreadable directories and
// files are skipped. Symlinked directories are not followed; symlinked files
// are.
//
// Walk returns ctx.Err() if the context is cancelled, or the first non-nil
// error returned by fn.
func (w *Walker) Walk(ctx context.Context, root string, fn func(types.DiscoveredFile) error) error {
	return w.visit(ctx, root, func(path string, info os.FileInfo) error {
		data, err := w.readPrefix(path)
		if err != nil {
			return nil
		}
		return fn(types.DiscoveredFile{
			Name: info.Name(),
			Path: path,
			Data: data,
		})
	})
}

// Count returns the number of audio files Walk would visit under root,
// without opening any of them.
func (w *Walker) Count(ctx context.Context, root string) (int, error) {
	count := 0
	err := w.visit(ctx, root, func(string, os.FileInfo) error {
		count++
		return nil
	})
	return count, err
}

// visit calls fn for every matching audio file under dir
func (w *Walker) visit(ctx context.Context, dir string, fn func(path string, info os.FileInfo) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := w.fs.ReadDir(dir)
	if err != nil {
		// Locked or vanished directories don't abort the rest of the scan
		return nil
	}

	for _, entry := range entries {
		path := w.fs.Join(dir, entry.Name())

		if entry.Mode()&os.ModeSymlink != 0 {
			target, err := w.fs.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				continue
			}
			entry = target
		}

		if entry.IsDir() {
			if ShouldSkipDir(entry.Name()) {
				continue
			}
			if err := w.visit(ctx, path, fn); err != nil {
				return err
			}
			continue
		}

		if !entry.Mode().IsRegular() || !IsAudioFile(entry.Name()) {
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(path, entry); err != nil {
			return err
		}
	}

	return nil
}

// readPrefix reads at most PrefixLimit bytes from the start of path. The
// handle is released before returning.
func (w *Walker) readPrefix(path string) ([]byte, error) {
	f, err := w.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// The listed size may be stale, so read whatever is there now.
	return io.ReadAll(io.LimitReader(f, PrefixLimit))
}
