package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"crickmic-engine/internal/domain"
)

type fakeSource struct {
	mu      sync.Mutex
	matches []domain.Match
	err     error
	calls   int
}

func (f *fakeSource) List(context.Context) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Match(nil), f.matches...), nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeContent struct {
	mu      sync.Mutex
	fail    map[string]bool
	panicOn string
	calls   []string
	ctxs    []string

	started chan struct{}
	release chan struct{}
}

func (f *fakeContent) Generate(ctx context.Context, m domain.Match, postCtx string) (domain.PostContent, error) {
	f.mu.Lock()
	f.calls = append(f.calls, m.ID)
	f.ctxs = append(f.ctxs, postCtx)
	fail := f.fail[m.ID]
	f.mu.Unlock()

	if m.ID == f.panicOn {
		panic("content exploded")
	}
	if f.release != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
		select {
		case <-f.release:
		case <-ctx.Done():
			return domain.PostContent{}, ctx.Err()
		}
	}
	if fail {
		return domain.PostContent{}, fmt.Errorf("content for %s: %w", m.ID, errQuota)
	}
	return domain.PostContent{Headline: "H " + m.ID, Description: "D " + m.ID, Hashtags: "#" + m.ID}, nil
}

func (f *fakeContent) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

var errQuota = errors.New("quota exceeded")

type fakeImage struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls int
	ctxs  []string
}

func (f *fakeImage) Generate(_ context.Context, m domain.Match, postCtx string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ctxs = append(f.ctxs, postCtx)
	if f.fail[m.ID] {
		return "", errors.New("image model refused")
	}
	return "data:image/png;base64,AAAA", nil
}

type fakeFallback struct {
	url string
}

func (f fakeFallback) FirstImage(context.Context, []domain.GroundingSource) (string, bool) {
	return f.url, f.url != ""
}

type fakeArchive struct {
	mu    sync.Mutex
	saved []domain.GeneratedPost
	err   error
}

func (f *fakeArchive) SavePosts(_ context.Context, posts []domain.GeneratedPost) ([]domain.GeneratedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.GeneratedPost, len(posts))
	for i, p := range posts {
		p.ImageURL = "/images/" + p.ID
		out[i] = p
	}
	f.saved = append(f.saved, out...)
	return out, nil
}

type fakePublisher struct {
	mu    sync.Mutex
	posts []domain.GeneratedPost

	started chan struct{}
	release chan struct{}
}

func (f *fakePublisher) PublishAll(ctx context.Context, posts []domain.GeneratedPost) int {
	if f.release != nil {
		f.started <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return 0
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, posts...)
	return len(posts)
}

func (f *fakePublisher) Posts() []domain.GeneratedPost {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.GeneratedPost(nil), f.posts...)
}

type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) Emit(typ string, _ any) {
	r.mu.Lock()
	r.types = append(r.types, typ)
	r.mu.Unlock()
}

func (r *recorder) Has(typ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.types {
		if t == typ {
			return true
		}
	}
	return false
}

func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("post-%d", n)
	}
}

var fixedNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func match(id string, published int64) domain.Match {
	return domain.Match{ID: id, TeamA: "A" + id, TeamB: "B" + id, PublishedAt: published, NewsHeadline: "headline " + id}
}

// pairedStages makes the content and image calls for one match wait for each
// other, so a run that serialises them fails instead of passing by luck.
type pairedStages struct {
	mu       sync.Mutex
	timeline []string
	arrived  map[string]int
	both     map[string]chan struct{}
	ctxs     map[domain.Stage][]string
}

func newPairedStages() *pairedStages {
	return &pairedStages{
		arrived: map[string]int{},
		both:    map[string]chan struct{}{},
		ctxs:    map[domain.Stage][]string{},
	}
}

func (p *pairedStages) enter(ctx context.Context, stage domain.Stage, id, postCtx string) error {
	p.mu.Lock()
	p.timeline = append(p.timeline, "start "+id)
	p.ctxs[stage] = append(p.ctxs[stage], postCtx)
	ch, ok := p.both[id]
	if !ok {
		ch = make(chan struct{})
		p.both[id] = ch
	}
	p.arrived[id]++
	if p.arrived[id] == 2 {
		close(ch)
	}
	p.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
		return fmt.Errorf("%s for %s never overlapped its sibling", stage, id)
	}

	p.mu.Lock()
	p.timeline = append(p.timeline, "end "+id)
	p.mu.Unlock()
	return nil
}

func (p *pairedStages) Timeline() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.timeline...)
}

type pairedContent struct{ p *pairedStages }

func (c pairedContent) Generate(ctx context.Context, m domain.Match, postCtx string) (domain.PostContent, error) {
	if err := c.p.enter(ctx, domain.StageContent, m.ID, postCtx); err != nil {
		return domain.PostContent{}, err
	}
	return domain.PostContent{Headline: "H " + m.ID, Description: "D " + m.ID, Hashtags: "#" + m.ID}, nil
}

type pairedImage struct{ p *pairedStages }

func (i pairedImage) Generate(ctx context.Context, m domain.Match, postCtx string) (string, error) {
	if err := i.p.enter(ctx, domain.StageImage, m.ID, postCtx); err != nil {
		return "", err
	}
	return "data:image/png;base64,AAAA", nil
}
