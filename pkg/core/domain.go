// Package core holds the capture lifecycle domain: the artifact/result pair,
// the ports it depends on, and the Coordinator that owns both.
package core

import (
	"fmt"
	"time"
)

// DefaultDisplayDelay is how long a captured artifact and its result stay visible.
const DefaultDisplayDelay = 5 * time.Second

// Artifact is a snapshot of one captured photo on disk.
type Artifact struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	// Vanished is set when the backing file was removed by someone else
	// (typically the cache reaper) while the artifact was still displayed.
	Vanished bool `json:"vanished,omitempty"`
}

// Result is the recognized text for exactly one Artifact.
type Result struct {
	ArtifactID string `json:"artifact_id"`
	Text       string `json:"text"`
}

// Phase is the coordinator's capture slot state.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseCapturing   Phase = "capturing"
	PhaseHolding     Phase = "holding"
	PhaseRecognizing Phase = "recognizing"
	PhaseTerminated  Phase = "terminated"
)

// State is what a caller observes through CurrentState.
type State struct {
	Phase     Phase     `json:"phase"`
	Artifact  *Artifact `json:"artifact,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Capturing bool      `json:"capturing"`
	Granted   bool      `json:"granted"`
	LastError string    `json:"last_error,omitempty"`
}

// EventType represents a transition in the capture lifecycle.
type EventType string

const (
	EventCaptured          EventType = "CAPTURED"
	EventCaptureFailed     EventType = "CAPTURE_FAILED"
	EventRecognized        EventType = "RECOGNIZED"
	EventRecognitionFailed EventType = "RECOGNITION_FAILED"
	EventSuperseded        EventType = "SUPERSEDED"
	EventExpired           EventType = "EXPIRED"
	EventDeleted           EventType = "DELETED"
	EventVanished          EventType = "VANISHED"
	EventTerminated        EventType = "TERMINATED"
)

// Event is published on the coordinator's event stream.
type Event struct {
	Type       EventType
	ArtifactID string
	Path       string
	Timestamp  int64 // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	if e.ArtifactID == "" {
		return string(e.Type)
	}
	return fmt.Sprintf("%s %s (%s)", e.Type, e.ArtifactID, e.Path)
}
