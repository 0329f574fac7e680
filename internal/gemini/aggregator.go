package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"crickmic-engine/internal/domain"
)

// SignalSource supplies raw sports-data records used to ground the search.
type SignalSource interface {
	MatchList(ctx context.Context) ([]json.RawMessage, error)
	SourceURI() string
}

// Aggregator is the match source: Gemini with search grounding, cross-checked
// against the sports-data signals.
type Aggregator struct {
	model      Model
	textModel  string
	signals    SignalSource
	maxSignals int
	log        zerolog.Logger
}

func NewAggregator(model Model, textModel string, signals SignalSource, maxSignals int, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		model:      model,
		textModel:  textModel,
		signals:    signals,
		maxSignals: maxSignals,
		log:        log.With().Str("component", "aggregator").Logger(),
	}
}

type rawMatch struct {
	TeamA        string  `json:"teamA"`
	TeamB        string  `json:"teamB"`
	Status       string  `json:"status"`
	Venue        string  `json:"venue"`
	MatchType    string  `json:"matchType"`
	StatusType   string  `json:"statusType"`
	DateTime     string  `json:"dateTime"`
	ScoreA       string  `json:"scoreA"`
	ScoreB       string  `json:"scoreB"`
	Winner       string  `json:"winner"`
	NewsHeadline string  `json:"newsHeadline"`
	MatchContext string  `json:"matchContext"`
	PublishedAt  float64 `json:"publishedAt"`
}

// List fetches the current candidate matches. Signal failures only degrade
// grounding; a model failure is returned to the caller.
func (a *Aggregator) List(ctx context.Context) ([]domain.Match, error) {
	var signals []json.RawMessage
	var signalURI string
	if a.signals != nil {
		signalURI = a.signals.SourceURI()
		s, err := a.signals.MatchList(ctx)
		if err != nil {
			a.log.Warn().Err(err).Msg("sports-data signals unavailable, continuing without")
		} else {
			signals = s
		}
	}
	if a.maxSignals > 0 && len(signals) > a.maxSignals {
		signals = signals[:a.maxSignals]
	}

	resp, err := a.model.GenerateText(ctx, TextRequest{
		Model:  a.textModel,
		Prompt: aggregatorPrompt(signals),
		Schema: matchListSchema,
		Search: true,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate news: %w", err)
	}

	var raws []rawMatch
	if err := decodeJSON(resp.Text, &raws); err != nil {
		return nil, fmt.Errorf("aggregate news: %w", err)
	}

	sources := append([]domain.GroundingSource{}, resp.Sources...)
	if signalURI != "" {
		sources = append(sources, domain.GroundingSource{URI: signalURI, Title: "RapidAPI Signal"})
	}

	out := make([]domain.Match, 0, len(raws))
	for i, r := range raws {
		published := int64(r.PublishedAt)
		out = append(out, domain.Match{
			ID:           fmt.Sprintf("match-%d-%d", i, published),
			TeamA:        r.TeamA,
			TeamB:        r.TeamB,
			Status:       r.Status,
			StatusType:   domain.ParseMatchStatus(r.StatusType),
			Venue:        r.Venue,
			MatchType:    r.MatchType,
			DateTime:     r.DateTime,
			ScoreA:       r.ScoreA,
			ScoreB:       r.ScoreB,
			Winner:       r.Winner,
			NewsHeadline: r.NewsHeadline,
			MatchContext: r.MatchContext,
			PublishedAt:  published,
			Sources:      append([]domain.GroundingSource(nil), sources...),
		})
	}
	a.log.Debug().Int("matches", len(out)).Int("signals", len(signals)).Msg("news aggregated")
	return out, nil
}
