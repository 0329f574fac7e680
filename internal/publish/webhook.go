package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"crickmic-engine/internal/domain"
)

type webhookPayload struct {
	Event string               `json:"event"`
	Post  domain.GeneratedPost `json:"post"`
}

// Webhook POSTs committed posts to an external endpoint.
type Webhook struct {
	url     string
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewWebhook(url, baseURL string, log zerolog.Logger) *Webhook {
	return &Webhook{
		url:     strings.TrimSpace(url),
		baseURL: baseURL,
		http:    &http.Client{Timeout: 20 * time.Second},
		log:     log.With().Str("component", "webhook").Logger(),
	}
}

func (w *Webhook) Enabled() bool { return w != nil && w.url != "" }

// Publish sends one post. Data-URI images are stripped unless the archive
// already rewrote them to /images/{key}.
func (w *Webhook) Publish(ctx context.Context, p domain.GeneratedPost) error {
	if !w.Enabled() {
		return nil
	}
	if strings.HasPrefix(p.ImageURL, "data:") {
		p.ImageURL = ""
	}
	p.ImageURL = AbsURL(w.baseURL, p.ImageURL)

	body, err := json.Marshal(webhookPayload{Event: "post_created", Post: p})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CrickMic/1.0")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post webhook: status %d", resp.StatusCode)
	}
	w.log.Debug().Str("post_id", p.ID).Msg("post published")
	return nil
}

// PublishAll sends posts in order, logging failures and continuing.
func (w *Webhook) PublishAll(ctx context.Context, posts []domain.GeneratedPost) int {
	sent := 0
	for _, p := range posts {
		if err := w.Publish(ctx, p); err != nil {
			w.log.Warn().Err(err).Str("post_id", p.ID).Msg("webhook publish failed")
			continue
		}
		sent++
	}
	return sent
}
