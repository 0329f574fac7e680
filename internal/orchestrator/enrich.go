package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"crickmic-engine/internal/config"
	"crickmic-engine/internal/domain"
	"crickmic-engine/internal/events"
)

type stageError struct {
	stage domain.Stage
	err   error
}

func (e *stageError) Error() string { return string(e.stage) + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

type runSummary struct {
	Origin    domain.Origin       `json:"origin"`
	Attempted int                 `json:"attempted"`
	Succeeded int                 `json:"succeeded"`
	Results   []domain.ItemResult `json:"results,omitempty"`
}

// RunEnrichment is the autopilot pipeline: items in order, identifiers added
// to the processed set per policy once the whole batch is done.
func (o *Orchestrator) RunEnrichment(ctx context.Context, items []domain.Match, postCtx string) ([]domain.ItemResult, error) {
	return o.enrich(ctx, items, postCtx, domain.OriginAutopilot, true)
}

// Dispatch enriches one match with a caller-supplied context and returns the
// post. The processed set is not touched.
func (o *Orchestrator) Dispatch(ctx context.Context, m domain.Match, postCtx string) (domain.GeneratedPost, error) {
	results, err := o.enrich(ctx, []domain.Match{m}, postCtx, domain.OriginDispatch, false)
	if err != nil {
		return domain.GeneratedPost{}, err
	}
	r := results[0]
	if !r.OK() {
		return domain.GeneratedPost{}, fmt.Errorf("dispatch %s: %w", m.ID, r.Err)
	}
	return *r.Post, nil
}

// DispatchByID resolves id against the current candidates before dispatching.
func (o *Orchestrator) DispatchByID(ctx context.Context, id, postCtx string) (domain.GeneratedPost, error) {
	m, ok := o.Match(id)
	if !ok {
		return domain.GeneratedPost{}, fmt.Errorf("%w: %s", ErrUnknownMatch, id)
	}
	return o.Dispatch(ctx, m, postCtx)
}

func (o *Orchestrator) enrich(ctx context.Context, items []domain.Match, postCtx string, origin domain.Origin, markProcessed bool) ([]domain.ItemResult, error) {
	if !o.run.TryLock() {
		return nil, ErrBusy
	}
	o.busy.Store(true)
	defer func() {
		o.busy.Store(false)
		o.run.Unlock()
	}()

	opts := o.options()
	log := o.log.With().Str("origin", string(origin)).Logger()
	log.Info().Int("items", len(items)).Msg("enrichment started")
	o.emit(events.TypeEnrichmentStarted, map[string]any{"origin": origin, "items": len(items)})

	results := make([]domain.ItemResult, 0, len(items))
	var batch []domain.GeneratedPost
	for _, m := range items {
		r := o.enrichOne(ctx, m, postCtx, origin, opts)
		if r.Err != nil {
			r.Error = r.Err.Error()
			log.Warn().Err(r.Err).Str("match_id", m.ID).Str("stage", string(r.Stage)).Msg("enrichment failed for item")
		} else {
			batch = append(batch, *r.Post)
		}
		results = append(results, r)
	}

	batch = o.archive(ctx, batch)
	for i := range results {
		if results[i].Post == nil {
			continue
		}
		for j := range batch {
			if batch[j].ID == results[i].Post.ID {
				results[i].Post = &batch[j]
				break
			}
		}
	}

	o.commit(results, batch, markProcessed, opts.ProcessedPolicy)

	for _, p := range batch {
		o.emit(events.TypePostCreated, p)
	}
	summary := runSummary{Origin: origin, Attempted: len(items), Succeeded: len(batch), Results: results}
	o.emit(events.TypeEnrichmentFinished, summary)
	log.Info().Int("attempted", len(items)).Int("succeeded", len(batch)).Msg("enrichment finished")

	if opts.AutoPublish && origin == domain.OriginAutopilot && o.deps.Publisher != nil && len(batch) > 0 {
		o.publishAsync(batch, log)
	}
	return results, nil
}

// publishAsync sends a committed batch without holding the run lock.
func (o *Orchestrator) publishAsync(batch []domain.GeneratedPost, log zerolog.Logger) {
	posts := append([]domain.GeneratedPost(nil), batch...)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		sent := o.deps.Publisher.PublishAll(o.base, posts)
		log.Info().Int("sent", sent).Int("posts", len(posts)).Msg("auto-published posts")
	}()
}

// commit applies a finished batch in one critical section: posts go to the
// front of the queue in input order and identifiers join the processed set.
func (o *Orchestrator) commit(results []domain.ItemResult, batch []domain.GeneratedPost, markProcessed bool, policy string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(batch) > 0 {
		next := make([]domain.GeneratedPost, 0, len(batch)+len(o.posts))
		next = append(next, batch...)
		next = append(next, o.posts...)
		o.posts = next
	}
	if !markProcessed {
		return
	}
	for _, r := range results {
		if policy == config.PolicyMarkSucceeded && !r.OK() {
			continue
		}
		o.processed[r.Match.ID] = struct{}{}
	}
}

// archive writes the batch through to the archive and returns the copies to
// keep. Archive failures keep the in-memory originals.
func (o *Orchestrator) archive(ctx context.Context, batch []domain.GeneratedPost) []domain.GeneratedPost {
	if o.deps.Archive == nil || len(batch) == 0 {
		return batch
	}
	saved, err := o.deps.Archive.SavePosts(ctx, batch)
	if err != nil {
		o.log.Error().Err(err).Int("posts", len(batch)).Msg("archive posts failed")
		return batch
	}
	return saved
}

func (o *Orchestrator) enrichOne(ctx context.Context, m domain.Match, postCtx string, origin domain.Origin, opts Options) (res domain.ItemResult) {
	res.Match = m
	defer func() {
		if rec := recover(); rec != nil {
			res.Post = nil
			res.Err = fmt.Errorf("panic while enriching %s: %v", m.ID, rec)
		}
	}()

	if opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ItemTimeout)
		defer cancel()
	}

	var content domain.PostContent
	var imageURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(domain.StageContent, func() error {
		c, err := o.deps.Content.Generate(gctx, m, postCtx)
		if err != nil {
			return &stageError{stage: domain.StageContent, err: err}
		}
		content = c
		return nil
	}))
	g.Go(guard(domain.StageImage, func() error {
		u, err := o.deps.Image.Generate(gctx, m, postCtx)
		if err != nil {
			if !opts.ImageFallback {
				return &stageError{stage: domain.StageImage, err: err}
			}
			o.log.Warn().Err(err).Str("match_id", m.ID).Msg("image generation failed, using fallback artwork")
			u = o.fallbackImage(gctx, m, opts)
			if u == "" {
				return &stageError{stage: domain.StageImage, err: err}
			}
		}
		imageURL = u
		return nil
	}))

	if err := g.Wait(); err != nil {
		var se *stageError
		if errors.As(err, &se) {
			res.Stage = se.stage
			res.Err = se.err
		} else {
			res.Err = err
		}
		return res
	}

	res.Post = &domain.GeneratedPost{
		ID:          o.deps.NewID(),
		MatchID:     m.ID,
		MatchTitle:  m.Title(),
		Headline:    content.Headline,
		Description: content.Description,
		Hashtags:    content.Hashtags,
		ImageURL:    imageURL,
		Context:     postCtx,
		Origin:      origin,
		GeneratedAt: o.deps.Now(),
	}
	return res
}

// guard turns a panic in a sub-task into a stage error.
func guard(stage domain.Stage, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = &stageError{stage: stage, err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		return fn()
	}
}

func (o *Orchestrator) fallbackImage(ctx context.Context, m domain.Match, opts Options) string {
	if o.deps.Fallback != nil {
		if img, ok := o.deps.Fallback.FirstImage(ctx, m.Sources); ok {
			return img
		}
	}
	return opts.Placeholder
}
