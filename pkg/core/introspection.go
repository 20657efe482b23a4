package core

import (
	"time"

	"github.com/aretw0/introspection"
)

// CoordinatorState exposes internal state for observability.
type CoordinatorState struct {
	Phase           Phase         `json:"phase"`
	HeldPath        string        `json:"held_path,omitempty"`
	Generation      uint64        `json:"generation"`
	DisplayDelay    time.Duration `json:"display_delay"`
	EventBufferSize int           `json:"event_buffer_size"`
	PendingEvents   int           `json:"pending_events"`
}

// State implements introspection.Introspectable.
func (c *Coordinator) State() any {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := CoordinatorState{
		Phase:           c.phaseLocked(),
		Generation:      c.generation,
		DisplayDelay:    c.displayDelay,
		EventBufferSize: c.eventBuffer,
		PendingEvents:   len(c.events),
	}
	if c.current != nil {
		s.HeldPath = c.current.Path
	}
	return s
}

// ComponentType implements introspection.Component.
func (c *Coordinator) ComponentType() string {
	return "coordinator"
}

var _ introspection.Introspectable = (*Coordinator)(nil)
var _ introspection.Component = (*Coordinator)(nil)
