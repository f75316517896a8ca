package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyallcooper/songbird/internal/types"
)

func TestChannelSinkDelivers(t *testing.T) {
	sink := NewChannelSink(4)

	sink.Send(&types.ScanProgress{Phase: types.PhaseCounting, Total: 2})
	sink.Send(&types.ScanProgress{Phase: types.PhaseScanning, Total: 2, Processed: 2})
	sink.Send(&types.ScanProgress{Phase: types.PhaseComplete, Total: 2, Processed: 2})
	sink.Close()

	var phases []types.ScanPhase
	for p := range sink.Updates() {
		phases = append(phases, p.Phase)
	}
	assert.Equal(t, []types.ScanPhase{types.PhaseCounting, types.PhaseScanning, types.PhaseComplete}, phases)
	assert.Zero(t, sink.Dropped())
}

func TestChannelSinkNeverBlocks(t *testing.T) {
	sink := NewChannelSink(1)
	defer sink.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 100; i++ {
			sink.Send(&types.ScanProgress{Phase: types.PhaseScanning, Total: 100, Processed: i})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked with no consumer")
	}

	assert.Equal(t, int64(99), sink.Dropped())
	first := <-sink.Updates()
	assert.Equal(t, 1, first.Processed)
}

func TestChannelSinkCompleteWaitsForRoom(t *testing.T) {
	sink := NewChannelSink(1)
	defer sink.Close()

	sink.Send(&types.ScanProgress{Phase: types.PhaseScanning, Processed: 1})

	// Make room shortly after the complete event starts waiting
	go func() {
		time.Sleep(completeWait / 4)
		<-sink.Updates()
	}()

	sink.Send(&types.ScanProgress{Phase: types.PhaseComplete, Processed: 1})

	select {
	case p := <-sink.Updates():
		assert.Equal(t, types.PhaseComplete, p.Phase)
	case <-time.After(time.Second):
		t.Fatal("complete event was not delivered")
	}
	assert.Zero(t, sink.Dropped())
}

func TestChannelSinkCompleteGivesUp(t *testing.T) {
	sink := NewChannelSink(1)
	defer sink.Close()

	sink.Send(&types.ScanProgress{Phase: types.PhaseScanning, Processed: 1})

	start := time.Now()
	sink.Send(&types.ScanProgress{Phase: types.PhaseComplete, Processed: 1})
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, completeWait)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, int64(1), sink.Dropped())
}

func TestChannelSinkSendAfterClose(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Close()
	sink.Close()

	require.NotPanics(t, func() {
		sink.Send(&types.ScanProgress{Phase: types.PhaseComplete})
	})

	_, ok := <-sink.Updates()
	assert.False(t, ok)
}

func TestChannelSinkWithScanner(t *testing.T) {
	fs := numbered(t, "/music", 25)
	sink := NewChannelSink(64)

	files, err := NewScanner(fs, nil).Scan(context.Background(), "/music", sink)
	require.NoError(t, err)
	sink.Close()

	var events []types.ScanProgress
	for p := range sink.Updates() {
		events = append(events, *p)
	}
	assertProgressSequence(t, events, len(files))
}
