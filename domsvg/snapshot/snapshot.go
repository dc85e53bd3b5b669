package snapshot

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// Snapshot is one converted element: the SVG envelope plus the metadata
// needed to identify it downstream.
type Snapshot struct {
	ID        string  `json:"id"` // snap_ + UUIDv7
	PageURL   string  `json:"page_url,omitempty"`
	Selector  string  `json:"selector,omitempty"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Nodes     int     `json:"nodes"`
	SVG       string  `json:"svg"`
	SVGHash   string  `json:"svg_hash"`  // SHA-256 hex
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
}

// MarshalSnapshot serialises a Snapshot to JSON.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot deserialises a Snapshot from JSON.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// HashSVG returns the SHA-256 hex digest of an SVG document.
func HashSVG(svg string) string {
	h := sha256.Sum256([]byte(svg))
	return fmt.Sprintf("%x", h)
}
