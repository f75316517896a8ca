// Package files holds the single-shot read and write helpers the host uses
// for playback and for saving downloaded content.
package files

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/lyallcooper/songbird/internal/library"
)

var (
	// ErrReadFailure wraps any failure reading an existing file
	ErrReadFailure = errors.New("read failed")

	// ErrWriteFailure wraps any failure writing a file
	ErrWriteFailure = errors.New("write failed")
)

// ReadFile returns the full content of path. A missing file yields an error
// wrapping library.ErrNotFound.
func ReadFile(fs billy.Filesystem, path string) ([]byte, error) {
	if _, err := fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", path, library.ErrNotFound)
		}
		return nil, fmt.Errorf("file %s: %w: %v", path, ErrReadFailure, err)
	}

	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w: %v", path, ErrReadFailure, err)
	}
	return data, nil
}

// WriteFile writes data to path, creating or truncating it.
func WriteFile(fs billy.Filesystem, path string, data []byte) error {
	if err := util.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("file %s: %w: %v", path, ErrWriteFailure, err)
	}
	return nil
}
