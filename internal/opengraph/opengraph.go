// Package opengraph resolves the og:image of grounding source pages. It backs
// the image fallback used when artwork generation fails.
package opengraph

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"crickmic-engine/internal/domain"
	"crickmic-engine/internal/ratelimit"
)

const maxBody = 1 << 20

type Fetcher struct {
	client  *http.Client
	limiter *ratelimit.HostLimiter
	log     zerolog.Logger
}

func NewFetcher(limiter *ratelimit.HostLimiter, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		limiter: limiter,
		log:     log.With().Str("component", "opengraph").Logger(),
	}
}

// Image returns the absolute og:image URL of pageURL, or "" when the page has none.
func (f *Fetcher) Image(ctx context.Context, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return "", fmt.Errorf("invalid page url %q", pageURL)
	}
	if err := f.limiter.WaitURL(ctx, pageURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "CrickMic/1.0 (OpenGraph fetcher)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get %s: status %d", pageURL, resp.StatusCode)
	}
	if ct := strings.ToLower(resp.Header.Get("Content-Type")); ct != "" && !strings.Contains(ct, "text/html") {
		return "", fmt.Errorf("get %s: not an html page (%s)", pageURL, ct)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return extractImage(doc, base), nil
}

func extractImage(doc *goquery.Document, base *url.URL) string {
	var raw string
	for _, sel := range []string{
		`meta[property="og:image:secure_url"]`,
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			raw = strings.TrimSpace(v)
			break
		}
	}
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// FirstImage walks the sources in order and returns the first og:image found.
func (f *Fetcher) FirstImage(ctx context.Context, sources []domain.GroundingSource) (string, bool) {
	for _, s := range sources {
		if s.URI == "" {
			continue
		}
		img, err := f.Image(ctx, s.URI)
		if err != nil {
			f.log.Debug().Err(err).Str("url", s.URI).Msg("og:image lookup failed")
			if ctx.Err() != nil {
				return "", false
			}
			continue
		}
		if img != "" {
			return img, true
		}
	}
	return "", false
}
