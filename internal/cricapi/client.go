// Package cricapi reads raw match signals from the RapidAPI cricket feed.
package cricapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"crickmic-engine/internal/ratelimit"
)

type Config struct {
	Host    string
	APIKey  string
	KeyFunc func() string // consulted when APIKey is empty
	BaseURL string        // overrides https://{Host}; used by tests
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *ratelimit.HostLimiter
	log     zerolog.Logger
}

func New(cfg Config, limiter *ratelimit.HostLimiter, log zerolog.Logger) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: limiter,
		log:     log.With().Str("component", "cricapi").Logger(),
	}
}

func (c *Client) endpoint() string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if base == "" {
		base = "https://" + c.cfg.Host
	}
	return base + "/match-list"
}

func (c *Client) apiKey() string {
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey
	}
	if c.cfg.KeyFunc != nil {
		return strings.TrimSpace(c.cfg.KeyFunc())
	}
	return ""
}

// SourceURI is the attribution link appended to aggregated matches.
func (c *Client) SourceURI() string {
	return "https://" + c.cfg.Host
}

// MatchList returns the raw match records. The feed has used both "matches"
// and "data" as the array key.
func (c *Client) MatchList(ctx context.Context) ([]json.RawMessage, error) {
	key := c.apiKey()
	if key == "" {
		return nil, fmt.Errorf("rapidapi key is not configured")
	}

	url := c.endpoint()
	if err := c.limiter.WaitURL(ctx, url); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", key)
	req.Header.Set("x-rapidapi-host", c.cfg.Host)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("rapidapi status %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var body struct {
		Matches []json.RawMessage `json:"matches"`
		Data    []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode match list: %w", err)
	}

	out := body.Matches
	if len(out) == 0 {
		out = body.Data
	}
	c.log.Debug().Int("signals", len(out)).Msg("match list fetched")
	return out, nil
}
