package model

import "encoding/json"

// HistoryItem is one server-owned history entry. The console never mutates
// history; it only renders the most recent entries.
type HistoryItem struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Details   json.RawMessage `json:"details,omitempty"`
}
