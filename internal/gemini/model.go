// Package gemini implements the match source, post generators and live
// tracker feed on top of the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"crickmic-engine/internal/domain"
)

// TextRequest asks for a JSON document constrained by Schema.
type TextRequest struct {
	Model  string
	Prompt string
	Schema *genai.Schema
	Search bool // enable Google Search grounding
}

type TextResponse struct {
	Text    string
	Sources []domain.GroundingSource
}

type Image struct {
	MIMEType string
	Data     []byte
}

// Model is the slice of the Gemini API the engine depends on.
type Model interface {
	GenerateText(ctx context.Context, req TextRequest) (TextResponse, error)
	// GenerateImage returns ok=false when the model answered without an image part.
	GenerateImage(ctx context.Context, model, prompt string) (img Image, ok bool, err error)
}

var ErrEmptyResponse = errors.New("gemini returned an empty response")

// SDKModel implements Model with the official genai client.
type SDKModel struct {
	client *genai.Client
}

var _ Model = (*SDKModel)(nil)

func NewSDKModel(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) (*SDKModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is empty")
	}
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("new genai client: %w", err)
	}
	return &SDKModel{client: client}, nil
}

func (m *SDKModel) GenerateText(ctx context.Context, req TextRequest) (TextResponse, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if req.Search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := m.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return TextResponse{}, fmt.Errorf("generate content (%s): %w", req.Model, err)
	}

	out := TextResponse{Text: resp.Text()}
	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil {
				continue
			}
			out.Sources = append(out.Sources, domain.GroundingSource{URI: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}
	return out, nil
}

func (m *SDKModel) GenerateImage(ctx context.Context, model, prompt string) (Image, bool, error) {
	resp, err := m.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return Image{}, false, fmt.Errorf("generate image (%s): %w", model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Image{}, false, nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return Image{MIMEType: part.InlineData.MIMEType, Data: part.InlineData.Data}, true, nil
		}
	}
	return Image{}, false, nil
}

// decodeJSON unmarshals model output, tolerating a surrounding markdown fence.
func decodeJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("decode model json: %w", err)
	}
	return nil
}
