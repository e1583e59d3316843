package model

import "time"

// Metrics holds the three headline utilisation percentages.
type Metrics struct {
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Disk   float64 `json:"disk"`
}

// FileEntry is one large file reported alongside a pending alert.
type FileEntry struct {
	Path string `json:"path"`
	Size string `json:"size"`
	Safe bool   `json:"safe,omitempty"`
}

// StatusSnapshot is one /api/status response. It has no identity of its own
// and is replaced wholesale on every successful poll.
type StatusSnapshot struct {
	Status       Metrics      `json:"status"`
	PendingAlert *AlertRecord `json:"pending_alert"`
	LargeFiles   []FileEntry  `json:"large_files"`
	Timestamp    string       `json:"timestamp,omitempty"`

	// ReceivedAt is stamped by the client when the response is decoded.
	ReceivedAt time.Time `json:"-"`
}
