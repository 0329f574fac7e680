package domain

import "time"

type PlayerStat struct {
	Name    string `json:"name"`
	Score   string `json:"score,omitempty"`
	Details string `json:"details,omitempty"`
}

// LiveUpdate is a scorecard snapshot for the tracked match.
type LiveUpdate struct {
	Score       string       `json:"score"`
	Commentary  string       `json:"commentary"`
	RecentBalls []string     `json:"recentBalls"`
	KeyMoment   string       `json:"keyMoment"`
	Summary     string       `json:"summary"`
	TopBatters  []PlayerStat `json:"topBatters"`
	TopBowlers  []PlayerStat `json:"topBowlers"`
	Timestamp   time.Time    `json:"timestamp"`
}
