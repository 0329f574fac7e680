package events

import (
	"encoding/json"
	"time"
)

const (
	TypePing               = "ping"
	TypeMatchesUpdated     = "matches_updated"
	TypeEnrichmentStarted  = "enrichment_started"
	TypeEnrichmentFinished = "enrichment_finished"
	TypePostCreated        = "post_created"
	TypePostRemoved        = "post_removed"
	TypeAutopilotChanged   = "autopilot_changed"
	TypeCountdown          = "countdown"
	TypeSelectionChanged   = "selection_changed"
	TypeTrackerUpdated     = "tracker_updated"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
