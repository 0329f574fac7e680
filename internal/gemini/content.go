package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crickmic-engine/internal/domain"
)

type ContentGenerator struct {
	model     Model
	textModel string
	brand     string
}

func NewContentGenerator(model Model, textModel, brand string) *ContentGenerator {
	return &ContentGenerator{model: model, textModel: textModel, brand: brand}
}

// Generate writes headline, description and hashtags. An empty context falls
// back to the match headline.
func (g *ContentGenerator) Generate(ctx context.Context, m domain.Match, postCtx string) (domain.PostContent, error) {
	resp, err := g.model.GenerateText(ctx, TextRequest{
		Model:  g.textModel,
		Prompt: contentPrompt(g.brand, m, postCtx),
		Schema: postContentSchema,
	})
	if err != nil {
		return domain.PostContent{}, fmt.Errorf("generate post content: %w", err)
	}

	var pc domain.PostContent
	if err := decodeJSON(resp.Text, &pc); err != nil {
		return domain.PostContent{}, fmt.Errorf("generate post content: %w", err)
	}
	if strings.TrimSpace(pc.Headline) == "" && strings.TrimSpace(pc.Description) == "" {
		return domain.PostContent{}, errors.New("generate post content: model returned no headline or description")
	}
	return pc, nil
}
