package gemini

import (
	"context"
	"fmt"
	"time"

	"crickmic-engine/internal/domain"
)

type LiveUpdater struct {
	model     Model
	textModel string
	now       func() time.Time
}

func NewLiveUpdater(model Model, textModel string) *LiveUpdater {
	return &LiveUpdater{model: model, textModel: textModel, now: time.Now}
}

// Fetch returns the grounded scorecard for m.
func (u *LiveUpdater) Fetch(ctx context.Context, m domain.Match) (domain.LiveUpdate, error) {
	resp, err := u.model.GenerateText(ctx, TextRequest{
		Model:  u.textModel,
		Prompt: liveUpdatePrompt(m),
		Schema: liveUpdateSchema,
		Search: true,
	})
	if err != nil {
		return domain.LiveUpdate{}, fmt.Errorf("fetch live update: %w", err)
	}

	var lu domain.LiveUpdate
	if err := decodeJSON(resp.Text, &lu); err != nil {
		return domain.LiveUpdate{}, fmt.Errorf("fetch live update: %w", err)
	}
	lu.Timestamp = u.now()
	return lu, nil
}
