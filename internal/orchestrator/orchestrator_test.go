package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crickmic-engine/internal/config"
	"crickmic-engine/internal/domain"
	"crickmic-engine/internal/events"
	"crickmic-engine/internal/scheduler"
)

type harness struct {
	o       *Orchestrator
	source  *fakeSource
	content *fakeContent
	image   *fakeImage
	events  *recorder
	ticker  *scheduler.ManualTicker
}

func newHarness(t *testing.T, opts Options, mutate ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		source:  &fakeSource{},
		content: &fakeContent{fail: map[string]bool{}},
		image:   &fakeImage{fail: map[string]bool{}},
		events:  &recorder{},
		ticker:  scheduler.NewManualTicker(),
	}
	deps := Deps{
		Source:    h.source,
		Content:   h.content,
		Image:     h.image,
		Notifier:  h.events,
		Log:       zerolog.Nop(),
		Now:       func() time.Time { return fixedNow },
		NewID:     seqIDs(),
		NewTicker: func() scheduler.Ticker { return h.ticker },
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	h.o = New(deps, opts)
	t.Cleanup(h.o.Close)
	return h
}

func postMatchIDs(posts []domain.GeneratedPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.MatchID
	}
	return out
}

func TestRefresh_SortsStableNewestFirst(t *testing.T) {
	h := newHarness(t, Options{})
	h.source.matches = []domain.Match{match("a", 100), match("b", 300), match("c", 100), match("d", 200)}

	require.NoError(t, h.o.Refresh(context.Background()))

	var ids []string
	for _, m := range h.o.Matches() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
	assert.Empty(t, h.content.Calls(), "idle refresh must not enrich")
	assert.True(t, h.events.Has(events.TypeMatchesUpdated))
}

func TestRefresh_SourceFailureKeepsState(t *testing.T) {
	h := newHarness(t, Options{})
	h.source.matches = []domain.Match{match("a", 1)}
	require.NoError(t, h.o.Refresh(context.Background()))

	h.source.err = errors.New("upstream down")
	require.Error(t, h.o.Refresh(context.Background()))

	require.Len(t, h.o.Matches(), 1)
	assert.Equal(t, "upstream down", h.o.Status().LastError)
}

func TestRefresh_DedupSkipsProcessed(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	_, err := h.o.RunEnrichment(ctx, []domain.Match{match("m1", 1)}, "")
	require.NoError(t, err)

	h.o.StartScan()
	h.source.matches = []domain.Match{match("m1", 5), match("m2", 2)}
	require.NoError(t, h.o.Refresh(ctx))

	assert.Equal(t, []string{"m1", "m2"}, h.content.Calls())
	assert.ElementsMatch(t, []string{"m1", "m2"}, h.o.Processed())

	require.NoError(t, h.o.Refresh(ctx))
	assert.Len(t, h.content.Calls(), 2, "second cycle has nothing new")
}

func TestRunEnrichment_MixedOutcomes(t *testing.T) {
	h := newHarness(t, Options{})
	h.content.fail["m2"] = true

	items := []domain.Match{match("m1", 3), match("m2", 2), match("m3", 1)}
	results, err := h.o.RunEnrichment(context.Background(), items, "")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())
	assert.Equal(t, domain.StageContent, results[1].Stage)
	assert.ErrorIs(t, results[1].Err, errQuota)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].OK())

	assert.Equal(t, []string{"m1", "m3"}, postMatchIDs(h.o.Posts()))
	assert.ElementsMatch(t, []string{"m1", "m2", "m3"}, h.o.Processed())
}

func TestRunEnrichment_MarkSucceededRetriesFailures(t *testing.T) {
	h := newHarness(t, Options{ProcessedPolicy: config.PolicyMarkSucceeded})
	h.image.fail["m2"] = true

	results, err := h.o.RunEnrichment(context.Background(), []domain.Match{match("m1", 2), match("m2", 1)}, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StageImage, results[1].Stage)

	assert.Equal(t, []string{"m1"}, h.o.Processed())
	assert.False(t, h.o.IsProcessed("m2"))
}

func TestRunEnrichment_PostsPrependedNewestBatchFirst(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	_, err := h.o.RunEnrichment(ctx, []domain.Match{match("old", 1)}, "")
	require.NoError(t, err)
	_, err = h.o.RunEnrichment(ctx, []domain.Match{match("n1", 3), match("n2", 2)}, "")
	require.NoError(t, err)

	posts := h.o.Posts()
	assert.Equal(t, []string{"n1", "n2", "old"}, postMatchIDs(posts))
	assert.Equal(t, "Aold vs Bold", posts[2].MatchTitle)
	assert.Equal(t, fixedNow, posts[0].GeneratedAt)
	assert.Equal(t, domain.OriginAutopilot, posts[0].Origin)
}

func TestRunEnrichment_Exclusive(t *testing.T) {
	h := newHarness(t, Options{})
	h.content.started = make(chan struct{}, 1)
	h.content.release = make(chan struct{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := h.o.RunEnrichment(ctx, []domain.Match{match("m1", 1)}, "")
		done <- err
	}()

	select {
	case <-h.content.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never started")
	}
	assert.True(t, h.o.Busy())

	_, err := h.o.RunEnrichment(ctx, []domain.Match{match("m2", 1)}, "")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = h.o.Dispatch(ctx, match("m3", 1), "Update")
	assert.ErrorIs(t, err, ErrBusy)

	close(h.content.release)
	require.NoError(t, <-done)
	assert.False(t, h.o.Busy())
	assert.Equal(t, []string{"m1"}, h.content.Calls())
}

func TestRunEnrichment_BusyClearedWhenEverythingFails(t *testing.T) {
	h := newHarness(t, Options{})
	h.content.fail["m1"] = true
	h.content.panicOn = "m2"

	results, err := h.o.RunEnrichment(context.Background(), []domain.Match{match("m1", 2), match("m2", 1)}, "")
	require.NoError(t, err)
	assert.False(t, results[0].OK())
	assert.False(t, results[1].OK())
	assert.Contains(t, results[1].Err.Error(), "panic")

	assert.False(t, h.o.Busy())
	assert.Empty(t, h.o.Posts())

	_, err = h.o.RunEnrichment(context.Background(), []domain.Match{match("m3", 1)}, "")
	require.NoError(t, err)
	assert.Len(t, h.o.Posts(), 1)
}

func TestDispatch_DoesNotTouchProcessedSet(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	_, err := h.o.RunEnrichment(ctx, []domain.Match{match("m0", 1)}, "")
	require.NoError(t, err)

	post, err := h.o.Dispatch(ctx, match("m1", 2), "focus on player X")
	require.NoError(t, err)
	assert.Equal(t, "m1", post.MatchID)
	assert.Equal(t, "focus on player X", post.Context)
	assert.Equal(t, domain.OriginDispatch, post.Origin)

	posts := h.o.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, post.ID, posts[0].ID)
	assert.False(t, h.o.IsProcessed("m1"))
	assert.Equal(t, []string{"m0"}, h.o.Processed())
}

func TestDispatch_ItemFailureIsReturned(t *testing.T) {
	h := newHarness(t, Options{})
	h.content.fail["m1"] = true

	_, err := h.o.Dispatch(context.Background(), match("m1", 1), "Summary")
	require.Error(t, err)
	assert.ErrorIs(t, err, errQuota)
	assert.Empty(t, h.o.Posts())
}

func TestDispatchByID_UnknownMatch(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.o.DispatchByID(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrUnknownMatch)
}

func TestImageFallback(t *testing.T) {
	t.Run("og image", func(t *testing.T) {
		h := newHarness(t, Options{ImageFallback: true, Placeholder: "https://placeholder/x.jpg"}, func(d *Deps) {
			d.Fallback = fakeFallback{url: "https://news.example/og.jpg"}
		})
		h.image.fail["m1"] = true

		post, err := h.o.Dispatch(context.Background(), match("m1", 1), "")
		require.NoError(t, err)
		assert.Equal(t, "https://news.example/og.jpg", post.ImageURL)
	})

	t.Run("placeholder", func(t *testing.T) {
		h := newHarness(t, Options{ImageFallback: true, Placeholder: "https://placeholder/x.jpg"}, func(d *Deps) {
			d.Fallback = fakeFallback{}
		})
		h.image.fail["m1"] = true

		post, err := h.o.Dispatch(context.Background(), match("m1", 1), "")
		require.NoError(t, err)
		assert.Equal(t, "https://placeholder/x.jpg", post.ImageURL)
	})

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t, Options{Placeholder: "https://placeholder/x.jpg"})
		h.image.fail["m1"] = true

		_, err := h.o.Dispatch(context.Background(), match("m1", 1), "")
		require.Error(t, err)
	})
}

func TestArchiveAndAutoPublish(t *testing.T) {
	archive := &fakeArchive{}
	pub := &fakePublisher{}
	h := newHarness(t, Options{AutoPublish: true}, func(d *Deps) {
		d.Archive = archive
		d.Publisher = pub
	})
	ctx := context.Background()

	_, err := h.o.RunEnrichment(ctx, []domain.Match{match("m1", 1)}, "")
	require.NoError(t, err)
	h.o.Wait()

	posts := h.o.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "/images/"+posts[0].ID, posts[0].ImageURL)
	published := pub.Posts()
	require.Len(t, published, 1)
	assert.Equal(t, posts[0].ImageURL, published[0].ImageURL)

	_, err = h.o.Dispatch(ctx, match("m2", 1), "")
	require.NoError(t, err)
	h.o.Wait()
	assert.Len(t, pub.Posts(), 1, "manual dispatch is not auto-published")
	assert.Len(t, archive.saved, 2)
}

func TestArchiveFailureKeepsPosts(t *testing.T) {
	h := newHarness(t, Options{}, func(d *Deps) {
		d.Archive = &fakeArchive{err: errors.New("disk full")}
	})

	_, err := h.o.RunEnrichment(context.Background(), []domain.Match{match("m1", 1)}, "")
	require.NoError(t, err)
	posts := h.o.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "data:image/png;base64,AAAA", posts[0].ImageURL)
}

func TestItemTimeout(t *testing.T) {
	h := newHarness(t, Options{ItemTimeout: 50 * time.Millisecond})
	h.content.started = make(chan struct{}, 1)
	h.content.release = make(chan struct{})
	defer close(h.content.release)

	results, err := h.o.RunEnrichment(context.Background(), []domain.Match{match("m1", 1)}, "")
	require.NoError(t, err)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	assert.True(t, h.o.IsProcessed("m1"))
}

func TestRemovePost(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.o.RunEnrichment(context.Background(), []domain.Match{match("m1", 2), match("m2", 1)}, "")
	require.NoError(t, err)

	posts := h.o.Posts()
	require.NoError(t, h.o.RemovePost(posts[0].ID))
	assert.Equal(t, []string{"m2"}, postMatchIDs(h.o.Posts()))
	assert.ErrorIs(t, h.o.RemovePost("missing"), ErrUnknownPost)
	assert.True(t, h.events.Has(events.TypePostRemoved))
}

func TestSnapshotsAreCopies(t *testing.T) {
	h := newHarness(t, Options{})
	h.source.matches = []domain.Match{match("a", 1)}
	require.NoError(t, h.o.Refresh(context.Background()))

	ms := h.o.Matches()
	ms[0].ID = "mutated"
	assert.Equal(t, "a", h.o.Matches()[0].ID)
}

func TestRunEnrichment_StagesOverlapItemsDoNot(t *testing.T) {
	stages := newPairedStages()
	h := newHarness(t, Options{}, func(d *Deps) {
		d.Content = pairedContent{stages}
		d.Image = pairedImage{stages}
	})

	items := []domain.Match{match("m1", 3), match("m2", 2), match("m3", 1)}
	results, err := h.o.RunEnrichment(context.Background(), items, "Rain delay at the Gabba")
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		require.True(t, r.OK(), "%s: %v", r.Match.ID, r.Err)
	}

	// Both stages of an item start before either ends, and the next item
	// starts only after both have ended.
	var want []string
	for _, m := range items {
		want = append(want, "start "+m.ID, "start "+m.ID, "end "+m.ID, "end "+m.ID)
	}
	assert.Equal(t, want, stages.Timeline())

	ctx := []string{"Rain delay at the Gabba", "Rain delay at the Gabba", "Rain delay at the Gabba"}
	assert.Equal(t, ctx, stages.ctxs[domain.StageContent])
	assert.Equal(t, ctx, stages.ctxs[domain.StageImage])
}

func TestDispatch_ImageReceivesContext(t *testing.T) {
	h := newHarness(t, Options{})
	h.source.matches = []domain.Match{match("m1", 1)}
	require.NoError(t, h.o.Refresh(context.Background()))

	_, err := h.o.DispatchByID(context.Background(), "m1", "PLAYER FOCUS: Heroic performance by Smith.")
	require.NoError(t, err)

	h.image.mu.Lock()
	defer h.image.mu.Unlock()
	assert.Equal(t, []string{"PLAYER FOCUS: Heroic performance by Smith."}, h.image.ctxs)
}

func TestAutoPublish_SlowWebhookDoesNotHoldRun(t *testing.T) {
	pub := &fakePublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	h := newHarness(t, Options{AutoPublish: true}, func(d *Deps) { d.Publisher = pub })
	ctx := context.Background()

	_, err := h.o.RunEnrichment(ctx, []domain.Match{match("m1", 1)}, "")
	require.NoError(t, err)
	select {
	case <-pub.started:
	case <-time.After(2 * time.Second):
		t.Fatal("publish never started")
	}

	assert.False(t, h.o.Busy())
	_, err = h.o.Dispatch(ctx, match("m2", 1), "")
	require.NoError(t, err, "a pending webhook must not make the next run busy")

	close(pub.release)
	h.o.Wait()
	assert.Len(t, pub.Posts(), 1)
}
