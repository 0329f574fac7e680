package orchestrator

import (
	"context"
	"errors"

	"crickmic-engine/internal/domain"
	"crickmic-engine/internal/events"
	"crickmic-engine/internal/scheduler"
)

// StartScan switches to SCANNING, resets the countdown and starts the
// per-second tick loop. It is a no-op when already scanning.
func (o *Orchestrator) StartScan() {
	o.mu.Lock()
	if o.mode == ModeScanning {
		o.mu.Unlock()
		return
	}
	o.mode = ModeScanning
	o.countdown.Reset()
	o.loopGen++
	gen := o.loopGen
	ctx, cancel := context.WithCancel(o.base)
	o.stopLoop = cancel
	o.mu.Unlock()

	t := o.deps.NewTicker()
	go scheduler.Loop(ctx, t, func(context.Context) {
		o.mu.RLock()
		current := o.loopGen == gen
		o.mu.RUnlock()
		if current {
			o.Tick(o.base)
		}
	})

	o.log.Info().Int("interval", o.countdown.Interval()).Msg("autopilot scanning")
	o.emit(events.TypeAutopilotChanged, o.Status())
}

// StopScan returns to IDLE. The tick loop is cancelled and the countdown
// reset; a refresh or run already in flight completes.
func (o *Orchestrator) StopScan() {
	o.mu.Lock()
	if o.mode == ModeIdle {
		o.mu.Unlock()
		o.countdown.Reset()
		return
	}
	o.mode = ModeIdle
	o.loopGen++
	if o.stopLoop != nil {
		o.stopLoop()
		o.stopLoop = nil
	}
	o.countdown.Reset()
	o.mu.Unlock()

	o.log.Info().Msg("autopilot idle")
	o.emit(events.TypeAutopilotChanged, o.Status())
}

// Toggle flips the mode and returns the new one.
func (o *Orchestrator) Toggle() Mode {
	if o.Mode() == ModeScanning {
		o.StopScan()
		return ModeIdle
	}
	o.StartScan()
	return ModeScanning
}

// Tick consumes one countdown second. When the countdown reaches zero it
// starts exactly one background refresh and reports true. Ticks outside
// SCANNING are ignored.
func (o *Orchestrator) Tick(ctx context.Context) bool {
	if o.Mode() != ModeScanning {
		return false
	}
	fired := o.countdown.Tick()
	o.emit(events.TypeCountdown, map[string]int{"remaining": o.countdown.Remaining()})
	if !fired {
		return false
	}
	if !o.startRefresh(ctx) {
		o.log.Warn().Msg("previous refresh still running, skipping cycle")
	}
	return true
}

// RefreshAsync starts a background refresh that outlives the caller. It
// reports false when one is already running.
func (o *Orchestrator) RefreshAsync() bool {
	return o.startRefresh(o.base)
}

func (o *Orchestrator) startRefresh(ctx context.Context) bool {
	if !o.refreshing.CompareAndSwap(false, true) {
		return false
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.refreshing.Store(false)
		_ = o.Refresh(ctx)
	}()
	return true
}

// Refresh fetches candidates, sorts them newest first and replaces the list.
// In SCANNING mode unprocessed candidates are enriched. A source failure
// leaves the previous state in place.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	matches, err := o.deps.Source.List(ctx)
	if err != nil {
		o.log.Error().Err(err).Msg("refresh failed, keeping previous candidates")
		o.mu.Lock()
		o.lastErr = err.Error()
		o.mu.Unlock()
		return err
	}
	sorted := domain.SortByPublishedDesc(matches)

	o.mu.Lock()
	o.matches = sorted
	o.lastRefresh = o.deps.Now()
	o.lastErr = ""
	scanning := o.mode == ModeScanning
	var pending []domain.Match
	if scanning {
		for _, m := range sorted {
			if _, done := o.processed[m.ID]; !done {
				pending = append(pending, m)
			}
		}
	}
	o.mu.Unlock()

	o.log.Info().Int("candidates", len(sorted)).Int("pending", len(pending)).Msg("candidates refreshed")
	o.emit(events.TypeMatchesUpdated, sorted)

	if len(pending) == 0 {
		return nil
	}
	if _, err := o.RunEnrichment(ctx, pending, ""); err != nil {
		if errors.Is(err, ErrBusy) {
			o.log.Warn().Int("pending", len(pending)).Msg("enrichment busy, pending candidates wait for next cycle")
			return nil
		}
		return err
	}
	return nil
}
