package gemini

import (
	"context"
	"encoding/base64"
	"fmt"

	"crickmic-engine/internal/domain"
)

type ImageGenerator struct {
	model       Model
	imageModel  string
	brand       string
	placeholder string
}

func NewImageGenerator(model Model, imageModel, brand, placeholder string) *ImageGenerator {
	return &ImageGenerator{model: model, imageModel: imageModel, brand: brand, placeholder: placeholder}
}

// Generate returns a data URI. When the model answers without an image part
// the placeholder artwork is returned instead.
func (g *ImageGenerator) Generate(ctx context.Context, m domain.Match, postCtx string) (string, error) {
	img, ok, err := g.model.GenerateImage(ctx, g.imageModel, imagePrompt(g.brand, m, postCtx))
	if err != nil {
		return "", fmt.Errorf("generate match image: %w", err)
	}
	if !ok {
		if g.placeholder == "" {
			return "", fmt.Errorf("generate match image: %w", ErrEmptyResponse)
		}
		return g.placeholder, nil
	}
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}
