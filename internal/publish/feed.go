// Package publish turns generated posts into outbound artefacts: an Atom
// feed for readers and a JSON webhook for auto-publishing.
package publish

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"crickmic-engine/internal/domain"
)

// AbsURL makes a server-relative path such as /images/{key} absolute.
func AbsURL(baseURL, ref string) string {
	if ref == "" || !strings.HasPrefix(ref, "/") || baseURL == "" {
		return ref
	}
	return strings.TrimRight(baseURL, "/") + ref
}

// Feed renders posts (newest first) as an Atom document.
func Feed(title, baseURL string, posts []domain.GeneratedPost, now time.Time) (string, error) {
	if title == "" {
		title = "CrickMic dispatches"
	}
	base := strings.TrimRight(baseURL, "/")

	feed := &feeds.Feed{
		Title:       title,
		Description: "Cricket match posts generated by the CrickMic engine",
		Link:        &feeds.Link{Href: base + "/feed.atom", Rel: "self", Type: "application/atom+xml"},
		Id:          "tag:crickmic,2024:feed",
		Created:     now,
		Updated:     now,
	}
	if len(posts) > 0 {
		feed.Updated = posts[0].GeneratedAt
	}

	for _, p := range posts {
		img := AbsURL(base, p.ImageURL)
		var b strings.Builder
		if img != "" && !strings.HasPrefix(img, "data:") {
			fmt.Fprintf(&b, `<p><img src="%s" alt="%s" style="max-width:100%%"></p>`, html.EscapeString(img), html.EscapeString(p.MatchTitle))
		}
		for _, para := range strings.Split(p.Description, "\n") {
			if strings.TrimSpace(para) == "" {
				continue
			}
			fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(para))
		}
		if p.Hashtags != "" {
			fmt.Fprintf(&b, "<p><em>%s</em></p>", html.EscapeString(p.Hashtags))
		}

		item := &feeds.Item{
			Title:       p.Headline,
			Id:          "urn:uuid:" + p.ID,
			Link:        &feeds.Link{Href: base + "/posts#" + p.ID, Rel: "alternate", Type: "text/html"},
			Description: b.String(),
			Created:     p.GeneratedAt,
			Updated:     p.GeneratedAt,
		}
		if p.MatchTitle != "" {
			item.Author = &feeds.Author{Name: p.MatchTitle}
		}
		feed.Items = append(feed.Items, item)
	}

	out, err := feed.ToAtom()
	if err != nil {
		return "", fmt.Errorf("render atom feed: %w", err)
	}
	return out, nil
}
