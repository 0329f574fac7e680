package tracker

import (
	"context"
	"fmt"
	"strings"

	"crickmic-engine/internal/domain"
)

type Kind string

const (
	KindUpdate  Kind = "UPDATE"
	KindSummary Kind = "SUMMARY"
	KindPlayer  Kind = "PLAYER"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindUpdate, KindSummary, KindPlayer:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// BuildContext renders the post context for a tracker dispatch.
func BuildContext(kind Kind, m domain.Match, lu domain.LiveUpdate, player *domain.PlayerStat) (string, error) {
	switch kind {
	case KindUpdate:
		return fmt.Sprintf("LIVE STATUS UPDATE: Current score is %s. Match situation: %s. Key moment: %s",
			lu.Score, lu.Summary, lu.KeyMoment), nil
	case KindSummary:
		return fmt.Sprintf("FULL MATCH SUMMARY & TACTICAL ANALYSIS: %s. Key performances: %s and %s",
			lu.Summary, joinNames(lu.TopBatters), joinNames(lu.TopBowlers)), nil
	case KindPlayer:
		if player == nil {
			return "", fmt.Errorf("%w: player dispatch needs a player", ErrUnknownPlayer)
		}
		return fmt.Sprintf("PLAYER FOCUS: Heroic performance by %s. Team: %s or %s. Stats: %s - %s. Impact on %s vs %s",
			player.Name, m.TeamA, m.TeamB, player.Score, player.Details, m.TeamA, m.TeamB), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func joinNames(ps []domain.PlayerStat) string {
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func findPlayer(lu domain.LiveUpdate, name string) (domain.PlayerStat, bool) {
	name = strings.TrimSpace(name)
	for _, group := range [][]domain.PlayerStat{lu.TopBatters, lu.TopBowlers} {
		for _, p := range group {
			if strings.EqualFold(p.Name, name) {
				return p, true
			}
		}
	}
	return domain.PlayerStat{}, false
}

// Dispatch turns the current scorecard into a post for the tracked match.
// Only one tracker dispatch runs at a time.
func (t *Monitor) Dispatch(ctx context.Context, kind Kind, playerName string) (domain.GeneratedPost, error) {
	m, ok := t.Match()
	if !ok {
		return domain.GeneratedPost{}, ErrNoTrackedMatch
	}
	lu, ok := t.Current()
	if !ok {
		return domain.GeneratedPost{}, ErrNoLiveUpdate
	}

	var player *domain.PlayerStat
	if kind == KindPlayer {
		p, found := findPlayer(lu, playerName)
		if !found {
			return domain.GeneratedPost{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, playerName)
		}
		player = &p
	}
	postCtx, err := BuildContext(kind, m, lu, player)
	if err != nil {
		return domain.GeneratedPost{}, err
	}

	if !t.inFlight.CompareAndSwap(false, true) {
		return domain.GeneratedPost{}, ErrDispatchInFlight
	}
	label := string(kind)
	if player != nil {
		label = player.Name
	}
	t.setDispatching(label)
	defer func() {
		t.setDispatching("")
		t.inFlight.Store(false)
	}()

	post, err := t.deps.Dispatcher.Dispatch(ctx, m, postCtx)
	if err != nil {
		t.log.Error().Err(err).Str("match_id", m.ID).Str("kind", string(kind)).Msg("tracker dispatch failed")
		return domain.GeneratedPost{}, err
	}
	t.log.Info().Str("match_id", m.ID).Str("kind", string(kind)).Str("post_id", post.ID).Msg("tracker dispatched")
	return post, nil
}

func (t *Monitor) setDispatching(label string) {
	t.mu.Lock()
	t.dispatching = label
	t.mu.Unlock()
	t.emitSnapshot()
}
