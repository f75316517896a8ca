// Package fileassoc queues audio files handed to the app by the OS (file
// associations, "open with", second launches) until the frontend is ready.
package fileassoc

import (
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/samber/lo"

	"github.com/lyallcooper/songbird/internal/library"
)

// FlushFunc delivers paths to the frontend once it is ready
type FlushFunc func(paths []string)

// Queue holds file-association paths. It is owned by the desktop shell; the
// scanner never touches it.
type Queue struct {
	fs billy.Filesystem

	mu      sync.Mutex
	pending []string
	flush   FlushFunc
}

// NewQueue creates an empty queue that checks paths against fs
func NewQueue(fs billy.Filesystem) *Queue {
	return &Queue{fs: fs}
}

// Enqueue filters args down to existing audio files and queues them. Once the
// frontend has signalled readiness the accepted paths are flushed straight
// away instead. It returns the accepted paths.
func (q *Queue) Enqueue(args ...string) []string {
	accepted := lo.Uniq(lo.Filter(args, func(arg string, _ int) bool {
		return q.acceptable(arg)
	}))
	if len(accepted) == 0 {
		return nil
	}

	q.mu.Lock()
	flush := q.flush
	if flush == nil {
		for _, path := range accepted {
			if !lo.Contains(q.pending, path) {
				q.pending = append(q.pending, path)
			}
		}
	}
	q.mu.Unlock()

	if flush != nil {
		flush(accepted)
	}
	return accepted
}

// Drain returns the queued paths and empties the queue
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	paths := q.pending
	q.pending = nil
	if paths == nil {
		return []string{}
	}
	return paths
}

// Ready records that the frontend is mounted and listening. Anything queued
// so far is handed to flush, as is everything enqueued afterwards. Calling
// Ready again replaces the flush function.
func (q *Queue) Ready(flush FlushFunc) {
	q.mu.Lock()
	q.flush = flush
	paths := q.pending
	q.pending = nil
	q.mu.Unlock()

	if flush != nil && len(paths) > 0 {
		flush(paths)
	}
}

func (q *Queue) acceptable(path string) bool {
	if !library.IsAudioFile(path) {
		return false
	}
	info, err := q.fs.Stat(path)
	return err == nil && !info.IsDir()
}
