package domain

import (
	"sort"
	"strings"
)

type MatchStatus string

const (
	StatusLive     MatchStatus = "LIVE"
	StatusResult   MatchStatus = "RESULT"
	StatusUpcoming MatchStatus = "UPCOMING"
)

// ParseMatchStatus upper-cases the provider value and falls back to UPCOMING.
func ParseMatchStatus(s string) MatchStatus {
	switch MatchStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusLive:
		return StatusLive
	case StatusResult:
		return StatusResult
	default:
		return StatusUpcoming
	}
}

type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Match is one candidate item. A fresh list is produced on every source fetch.
type Match struct {
	ID           string            `json:"id"`
	TeamA        string            `json:"teamA"`
	TeamB        string            `json:"teamB"`
	Status       string            `json:"status"`
	StatusType   MatchStatus       `json:"statusType"`
	Venue        string            `json:"venue"`
	MatchType    string            `json:"matchType"`
	DateTime     string            `json:"dateTime,omitempty"`
	ScoreA       string            `json:"scoreA,omitempty"`
	ScoreB       string            `json:"scoreB,omitempty"`
	Winner       string            `json:"winner,omitempty"`
	NewsHeadline string            `json:"newsHeadline,omitempty"`
	MatchContext string            `json:"matchContext,omitempty"`
	PublishedAt  int64             `json:"publishedAt"` // epoch ms
	Sources      []GroundingSource `json:"sources,omitempty"`
}

func (m Match) Title() string {
	return m.TeamA + " vs " + m.TeamB
}

// SortByPublishedDesc orders newest first; ties keep source order.
func SortByPublishedDesc(ms []Match) []Match {
	out := make([]Match, len(ms))
	copy(out, ms)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt > out[j].PublishedAt
	})
	return out
}
