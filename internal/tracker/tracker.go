// Package tracker follows one match at a time, refreshing its scorecard on a
// short countdown and turning it into update, summary or player posts.
package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"crickmic-engine/internal/config"
	"crickmic-engine/internal/domain"
	"crickmic-engine/internal/events"
	"crickmic-engine/internal/scheduler"
)

var (
	ErrNoTrackedMatch   = errors.New("no match is being tracked")
	ErrDispatchInFlight = errors.New("a tracker dispatch is already in progress")
	ErrNoLiveUpdate     = errors.New("no live update has been fetched yet")
	ErrUnknownPlayer    = errors.New("player is not on the current scorecard")
	ErrUnknownKind      = errors.New("unknown dispatch kind")
)

type Fetcher interface {
	Fetch(ctx context.Context, m domain.Match) (domain.LiveUpdate, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, m domain.Match, postCtx string) (domain.GeneratedPost, error)
}

type Notifier interface {
	Emit(typ string, data any)
}

type Deps struct {
	Fetcher    Fetcher
	Dispatcher Dispatcher
	Notifier   Notifier // optional
	Log        zerolog.Logger
	NewTicker  func() scheduler.Ticker
}

type Monitor struct {
	deps      Deps
	log       zerolog.Logger
	countdown *scheduler.Countdown

	mu          sync.RWMutex
	match       *domain.Match
	update      *domain.LiveUpdate
	lastErr     string
	dispatching string
	gen         uint64
	stopLoop    context.CancelFunc

	inFlight atomic.Bool
	fetching bool   // guarded by mu
	fetchGen uint64 // generation the in-flight fetch belongs to

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(deps Deps, refreshSeconds int) *Monitor {
	if refreshSeconds <= 0 {
		refreshSeconds = config.DefaultTrackerSeconds
	}
	if deps.NewTicker == nil {
		deps.NewTicker = func() scheduler.Ticker { return scheduler.NewTicker(time.Second) }
	}
	base, cancel := context.WithCancel(context.Background())
	return &Monitor{
		deps:      deps,
		log:       deps.Log.With().Str("component", "tracker").Logger(),
		countdown: scheduler.NewCountdown(refreshSeconds),
		base:      base,
		cancel:    cancel,
	}
}

func (t *Monitor) SetInterval(seconds int) {
	if seconds > 0 && seconds != t.countdown.Interval() {
		t.countdown.SetInterval(seconds)
	}
}

// Start tracks m, replacing any previous match, and fetches immediately.
func (t *Monitor) Start(m domain.Match) {
	t.mu.Lock()
	if t.stopLoop != nil {
		t.stopLoop()
	}
	t.gen++
	gen := t.gen
	t.match = &m
	t.update = nil
	t.lastErr = ""
	ctx, cancel := context.WithCancel(t.base)
	t.stopLoop = cancel
	t.mu.Unlock()
	t.countdown.Reset()

	tk := t.deps.NewTicker()
	go scheduler.Loop(ctx, tk, func(context.Context) {
		if t.generation() == gen {
			t.Tick(t.base)
		}
	})

	t.log.Info().Str("match_id", m.ID).Msg("tracking match")
	t.emitSnapshot()
	t.refreshAsync(t.base)
}

// Stop ends tracking. A fetch already in flight is discarded on arrival.
func (t *Monitor) Stop() {
	t.mu.Lock()
	if t.match == nil {
		t.mu.Unlock()
		return
	}
	t.gen++
	if t.stopLoop != nil {
		t.stopLoop()
		t.stopLoop = nil
	}
	t.match = nil
	t.update = nil
	t.lastErr = ""
	t.mu.Unlock()
	t.countdown.Reset()

	t.log.Info().Msg("tracking stopped")
	t.emitSnapshot()
}

func (t *Monitor) Close() {
	t.Stop()
	t.cancel()
	t.wg.Wait()
}

// Wait blocks until background fetches have finished.
func (t *Monitor) Wait() { t.wg.Wait() }

// Tick consumes one countdown second and starts a fetch when it reaches zero.
func (t *Monitor) Tick(ctx context.Context) bool {
	if _, ok := t.Match(); !ok {
		return false
	}
	if !t.countdown.Tick() {
		return false
	}
	t.refreshAsync(ctx)
	return true
}

// refreshAsync starts a background fetch unless one is already running for
// the current match. A fetch left over from a previous match does not block it.
func (t *Monitor) refreshAsync(ctx context.Context) {
	t.mu.Lock()
	if t.fetching && t.fetchGen == t.gen {
		t.mu.Unlock()
		return
	}
	gen := t.gen
	t.fetching, t.fetchGen = true, gen
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			t.mu.Lock()
			if t.fetchGen == gen {
				t.fetching = false
			}
			t.mu.Unlock()
		}()
		_ = t.Refresh(ctx)
	}()
}

// Refresh fetches the scorecard for the tracked match. On failure the
// previous update is kept.
func (t *Monitor) Refresh(ctx context.Context) error {
	t.mu.RLock()
	gen := t.gen
	var m domain.Match
	tracked := t.match != nil
	if tracked {
		m = *t.match
	}
	t.mu.RUnlock()
	if !tracked {
		return ErrNoTrackedMatch
	}

	lu, err := t.deps.Fetcher.Fetch(ctx, m)

	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		return nil
	}
	if err != nil {
		t.lastErr = err.Error()
		t.mu.Unlock()
		t.log.Error().Err(err).Str("match_id", m.ID).Msg("live update failed, keeping previous scorecard")
		return err
	}
	t.update = &lu
	t.lastErr = ""
	t.mu.Unlock()
	t.countdown.Reset()

	t.log.Debug().Str("match_id", m.ID).Str("score", lu.Score).Msg("live update")
	t.emitSnapshot()
	return nil
}

func (t *Monitor) generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gen
}

func (t *Monitor) Match() (domain.Match, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.match == nil {
		return domain.Match{}, false
	}
	return *t.match, true
}

// Current returns the latest scorecard, if any.
func (t *Monitor) Current() (domain.LiveUpdate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.update == nil {
		return domain.LiveUpdate{}, false
	}
	return *t.update, true
}

type Snapshot struct {
	Tracking    bool               `json:"tracking"`
	Match       *domain.Match      `json:"match,omitempty"`
	Update      *domain.LiveUpdate `json:"update,omitempty"`
	Countdown   int                `json:"countdown"`
	Dispatching string             `json:"dispatching,omitempty"`
	LastError   string             `json:"lastError,omitempty"`
}

func (t *Monitor) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := Snapshot{
		Tracking:    t.match != nil,
		Countdown:   t.countdown.Remaining(),
		Dispatching: t.dispatching,
		LastError:   t.lastErr,
	}
	if t.match != nil {
		m := *t.match
		s.Match = &m
	}
	if t.update != nil {
		u := *t.update
		s.Update = &u
	}
	return s
}

func (t *Monitor) emitSnapshot() {
	if t.deps.Notifier != nil {
		t.deps.Notifier.Emit(events.TypeTrackerUpdated, t.Snapshot())
	}
}
