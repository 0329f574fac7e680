package domain

import (
	"encoding/json"
	"net/url"
	"time"
)

const facebookSharer = "https://www.facebook.com/sharer/sharer.php"

// GeneratedPost is immutable once created.
type GeneratedPost struct {
	ID          string    `json:"id"`
	MatchID     string    `json:"matchId"`
	MatchTitle  string    `json:"matchTitle"`
	Headline    string    `json:"headline"`
	Description string    `json:"description"`
	Hashtags    string    `json:"hashtags"`
	ImageURL    string    `json:"imageUrl"`
	Context     string    `json:"context,omitempty"`
	Origin      Origin    `json:"origin"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// ShareText is the full post as it is pasted into a social network.
func (p GeneratedPost) ShareText() string {
	return p.Headline + "\n\n" + p.Description + "\n\n" + p.Hashtags
}

// ShareURL opens the Facebook sharer prefilled with ShareText.
func (p GeneratedPost) ShareURL() string {
	return facebookSharer + "?quote=" + url.QueryEscape(p.ShareText())
}

// MarshalJSON adds shareText and shareUrl so every consumer gets the same
// copy-ready text and sharer link.
func (p GeneratedPost) MarshalJSON() ([]byte, error) {
	type plain GeneratedPost
	return json.Marshal(struct {
		plain
		ShareText string `json:"shareText"`
		ShareURL  string `json:"shareUrl"`
	}{plain(p), p.ShareText(), p.ShareURL()})
}

// Origin records which flow produced a post.
type Origin string

const (
	OriginAutopilot Origin = "autopilot"
	OriginSelection Origin = "selection"
	OriginDispatch  Origin = "dispatch"
)

// PostContent is the Content Generator response.
type PostContent struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Hashtags    string `json:"hashtags"`
}

type Stage string

const (
	StageContent Stage = "content"
	StageImage   Stage = "image"
)

// ItemResult is the tagged outcome of enriching one match.
type ItemResult struct {
	Match Match          `json:"match"`
	Post  *GeneratedPost `json:"post,omitempty"`
	Stage Stage          `json:"stage,omitempty"`
	Err   error          `json:"-"`
	Error string         `json:"error,omitempty"`
}

func (r ItemResult) OK() bool { return r.Err == nil && r.Post != nil }
