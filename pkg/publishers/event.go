package publishers

import (
	"time"
)

// Event types emitted by the mirror.
const (
	EventVersionChanged = "version_changed"
)

// Event represents the payload published downstream.
type Event struct {
	Type            string    `json:"type"`
	ClientID        string    `json:"client_id"`
	PreviousVersion string    `json:"previous_version,omitempty"`
	LatestVersion   string    `json:"latest_version"`
	DetectedAt      time.Time `json:"detected_at"`
}

// NewVersionEvent constructs an Event announcing a new app version.
func NewVersionEvent(clientID, previous, latest string) Event {
	return Event{
		Type:            EventVersionChanged,
		ClientID:        clientID,
		PreviousVersion: previous,
		LatestVersion:   latest,
		DetectedAt:      time.Now().UTC(),
	}
}
