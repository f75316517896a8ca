package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lyallcooper/songbird/internal/types"
)

// ProgressSink receives progress events from a scan. Send must not block for
// long: a scan calls it inline between file reads.
type ProgressSink interface {
	Send(progress *types.ScanProgress)
}

// SinkFunc adapts a function to a ProgressSink
type SinkFunc func(progress *types.ScanProgress)

// Send calls f(progress)
func (f SinkFunc) Send(progress *types.ScanProgress) {
	f(progress)
}

type discardSink struct{}

func (discardSink) Send(*types.ScanProgress) {}

// completeWait bounds how long the terminal event waits for buffer space
const completeWait = 100 * time.Millisecond

// ChannelSink hands progress to a consumer goroutine over a buffered
// channel. Sends never block the scan: when the buffer is full the event is
// dropped. The complete event gets a short grace period so a slow consumer
// still sees the scan finish.
type ChannelSink struct {
	ch        chan *types.ScanProgress
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	dropped   atomic.Int64
}

// NewChannelSink creates a sink with the given buffer size
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{
		ch: make(chan *types.ScanProgress, buffer),
	}
}

// Updates returns the channel events are delivered on. It is closed by Close.
func (s *ChannelSink) Updates() <-chan *types.ScanProgress {
	return s.ch
}

// Send delivers progress if there is room, otherwise drops it
func (s *ChannelSink) Send(progress *types.ScanProgress) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- progress:
		return
	default:
	}

	if progress.Phase == types.PhaseComplete {
		timer := time.NewTimer(completeWait)
		defer timer.Stop()
		select {
		case s.ch <- progress:
			return
		case <-timer.C:
		}
	}
	s.dropped.Add(1)
}

// Dropped returns how many events were discarded because the consumer lagged
func (s *ChannelSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops delivery and closes the updates channel
func (s *ChannelSink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}
