package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crickmic-engine/internal/domain"
)

func TestCountdown_TickFiresOneRefresh(t *testing.T) {
	h := newHarness(t, Options{ScanSeconds: 300})
	h.source.matches = []domain.Match{match("m1", 1)}

	h.o.StartScan()
	assert.Equal(t, ModeScanning, h.o.Mode())
	assert.Equal(t, 300, h.o.Status().Countdown)

	ctx := context.Background()
	for i := 0; i < 299; i++ {
		require.False(t, h.o.Tick(ctx))
	}
	assert.Equal(t, 1, h.o.Status().Countdown)
	assert.Equal(t, 0, h.source.Calls())

	require.True(t, h.o.Tick(ctx))
	h.o.Wait()
	assert.Equal(t, 1, h.source.Calls())
	assert.Equal(t, 300, h.o.Status().Countdown)
	assert.Equal(t, []string{"m1"}, h.content.Calls())
}

func TestCountdown_StopResetsAndHalts(t *testing.T) {
	h := newHarness(t, Options{ScanSeconds: 300})
	ctx := context.Background()

	h.o.StartScan()
	for i := 0; i < 42; i++ {
		h.o.Tick(ctx)
	}
	assert.Equal(t, 258, h.o.Status().Countdown)

	h.o.StopScan()
	assert.Equal(t, ModeIdle, h.o.Mode())
	assert.Equal(t, 300, h.o.Status().Countdown)

	assert.False(t, h.o.Tick(ctx))
	assert.Equal(t, 300, h.o.Status().Countdown, "idle ticks are ignored")
	assert.Eventually(t, h.ticker.Stopped, 2*time.Second, 10*time.Millisecond)
}

func TestScanLoop_DrivenByTicker(t *testing.T) {
	h := newHarness(t, Options{ScanSeconds: 3})
	h.source.matches = []domain.Match{match("m1", 1)}

	assert.Equal(t, ModeScanning, h.o.Toggle())
	require.Equal(t, 2, h.ticker.Advance(2))
	assert.Eventually(t, func() bool { return h.o.Status().Countdown == 1 }, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, 1, h.ticker.Advance(1))
	assert.Eventually(t, func() bool { return h.source.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)
	h.o.Wait()
	assert.Equal(t, 3, h.o.Status().Countdown)

	assert.Equal(t, ModeIdle, h.o.Toggle())
	assert.Eventually(t, h.ticker.Stopped, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, h.ticker.Advance(1))
	assert.Equal(t, 1, h.source.Calls())
}

func TestStopScan_DoesNotCancelInFlightRun(t *testing.T) {
	h := newHarness(t, Options{ScanSeconds: 1})
	h.content.started = make(chan struct{}, 1)
	h.content.release = make(chan struct{})
	h.source.matches = []domain.Match{match("m1", 1)}

	h.o.StartScan()
	require.True(t, h.o.Tick(context.Background()))

	select {
	case <-h.content.started:
	case <-time.After(2 * time.Second):
		t.Fatal("enrichment never started")
	}
	h.o.StopScan()
	close(h.content.release)
	h.o.Wait()

	assert.Len(t, h.o.Posts(), 1)
	assert.True(t, h.o.IsProcessed("m1"))
}
