// Package orchestrator owns the autopilot state machine: the candidate list,
// the processed-id set, the generated post queue, the selection and the
// countdown that drives periodic refreshes.
package orchestrator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crickmic-engine/internal/config"
	"crickmic-engine/internal/domain"
	"crickmic-engine/internal/events"
	"crickmic-engine/internal/scheduler"
)

type Mode string

const (
	ModeIdle     Mode = "IDLE"
	ModeScanning Mode = "SCANNING"
)

var (
	// ErrBusy is returned when an enrichment run is already active.
	ErrBusy         = errors.New("an enrichment run is already in progress")
	ErrUnknownMatch = errors.New("match is not in the current candidate list")
	ErrUnknownPost  = errors.New("post not found")
)

type MatchSource interface {
	List(ctx context.Context) ([]domain.Match, error)
}

type ContentGenerator interface {
	Generate(ctx context.Context, m domain.Match, postCtx string) (domain.PostContent, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, m domain.Match, postCtx string) (string, error)
}

// ImageFallback finds substitute artwork among a match's grounding sources.
type ImageFallback interface {
	FirstImage(ctx context.Context, sources []domain.GroundingSource) (string, bool)
}

// Archive persists committed posts and returns the copies to keep in memory.
type Archive interface {
	SavePosts(ctx context.Context, posts []domain.GeneratedPost) ([]domain.GeneratedPost, error)
}

type Publisher interface {
	PublishAll(ctx context.Context, posts []domain.GeneratedPost) int
}

type Notifier interface {
	Emit(typ string, data any)
}

type Options struct {
	ScanSeconds     int
	ProcessedPolicy string
	ImageFallback   bool
	Placeholder     string
	ItemTimeout     time.Duration
	AutoPublish     bool
}

// OptionsFromConfig maps the enrichment and autopilot sections of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		ScanSeconds:     cfg.Autopilot.ScanSeconds,
		ProcessedPolicy: cfg.Enrichment.ProcessedPolicy,
		ImageFallback:   cfg.Enrichment.ImageFallback,
		Placeholder:     cfg.Enrichment.PlaceholderImage,
		ItemTimeout:     time.Duration(cfg.Enrichment.ItemTimeoutSeconds) * time.Second,
		AutoPublish:     cfg.Publish.Auto,
	}
}

type Deps struct {
	Source    MatchSource
	Content   ContentGenerator
	Image     ImageGenerator
	Fallback  ImageFallback // optional
	Archive   Archive       // optional
	Publisher Publisher     // optional
	Notifier  Notifier      // optional
	Log       zerolog.Logger

	Now       func() time.Time
	NewID     func() string
	NewTicker func() scheduler.Ticker
}

type Orchestrator struct {
	deps Deps
	log  zerolog.Logger

	mu          sync.RWMutex
	opts        Options
	mode        Mode
	matches     []domain.Match
	processed   map[string]struct{}
	posts       []domain.GeneratedPost
	selection   map[string]struct{}
	lastRefresh time.Time
	lastErr     string
	loopGen     uint64
	stopLoop    context.CancelFunc

	countdown *scheduler.Countdown

	run        sync.Mutex // held for the duration of one enrichment run
	busy       atomic.Bool
	refreshing atomic.Bool

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(deps Deps, opts Options) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.NewTicker == nil {
		deps.NewTicker = func() scheduler.Ticker { return scheduler.NewTicker(time.Second) }
	}
	if opts.ScanSeconds <= 0 {
		opts.ScanSeconds = config.DefaultScanSeconds
	}
	if opts.ProcessedPolicy == "" {
		opts.ProcessedPolicy = config.PolicyMarkAttempted
	}

	base, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		deps:      deps,
		log:       deps.Log.With().Str("component", "orchestrator").Logger(),
		opts:      opts,
		mode:      ModeIdle,
		processed: make(map[string]struct{}),
		selection: make(map[string]struct{}),
		countdown: scheduler.NewCountdown(opts.ScanSeconds),
		base:      base,
		cancel:    cancel,
	}
}

// Close stops scanning, cancels background refreshes and waits for them.
func (o *Orchestrator) Close() {
	o.StopScan()
	o.cancel()
	o.wg.Wait()
}

// Wait blocks until background refreshes and auto-publishes have finished.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// Reconfigure applies new options. A changed scan interval restarts the countdown.
func (o *Orchestrator) Reconfigure(opts Options) {
	if opts.ScanSeconds <= 0 {
		opts.ScanSeconds = config.DefaultScanSeconds
	}
	if opts.ProcessedPolicy == "" {
		opts.ProcessedPolicy = config.PolicyMarkAttempted
	}
	o.mu.Lock()
	o.opts = opts
	o.mu.Unlock()
	if o.countdown.Interval() != opts.ScanSeconds {
		o.countdown.SetInterval(opts.ScanSeconds)
	}
}

func (o *Orchestrator) options() Options {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.opts
}

func (o *Orchestrator) emit(typ string, data any) {
	if o.deps.Notifier != nil {
		o.deps.Notifier.Emit(typ, data)
	}
}

type Status struct {
	Mode        Mode      `json:"mode"`
	Countdown   int       `json:"countdown"`
	Interval    int       `json:"interval"`
	Busy        bool      `json:"busy"`
	Candidates  int       `json:"candidates"`
	Processed   int       `json:"processed"`
	Posts       int       `json:"posts"`
	Selected    int       `json:"selected"`
	Policy      string    `json:"processedPolicy"`
	LastRefresh time.Time `json:"lastRefresh,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
}

func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Status{
		Mode:        o.mode,
		Countdown:   o.countdown.Remaining(),
		Interval:    o.countdown.Interval(),
		Busy:        o.busy.Load(),
		Candidates:  len(o.matches),
		Processed:   len(o.processed),
		Posts:       len(o.posts),
		Selected:    len(o.selection),
		Policy:      o.opts.ProcessedPolicy,
		LastRefresh: o.lastRefresh,
		LastError:   o.lastErr,
	}
}

func (o *Orchestrator) Mode() Mode {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mode
}

func (o *Orchestrator) Busy() bool { return o.busy.Load() }

// Matches returns a copy of the current candidate list.
func (o *Orchestrator) Matches() []domain.Match {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]domain.Match(nil), o.matches...)
}

func (o *Orchestrator) Match(id string) (domain.Match, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, m := range o.matches {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Match{}, false
}

// Posts returns a copy of the generated post queue, newest first.
func (o *Orchestrator) Posts() []domain.GeneratedPost {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]domain.GeneratedPost(nil), o.posts...)
}

// RemovePost drops a post from the session queue. The archive is untouched.
func (o *Orchestrator) RemovePost(id string) error {
	o.mu.Lock()
	idx := -1
	for i, p := range o.posts {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		o.mu.Unlock()
		return ErrUnknownPost
	}
	next := make([]domain.GeneratedPost, 0, len(o.posts)-1)
	next = append(next, o.posts[:idx]...)
	next = append(next, o.posts[idx+1:]...)
	o.posts = next
	o.mu.Unlock()

	o.emit(events.TypePostRemoved, map[string]string{"id": id})
	return nil
}

// Processed returns the processed ids, sorted.
func (o *Orchestrator) Processed() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.processed))
	for id := range o.processed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (o *Orchestrator) IsProcessed(id string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.processed[id]
	return ok
}
