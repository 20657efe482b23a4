package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// ReaperState exposes internal state for observability.
type ReaperState struct {
	Dir          string      `json:"dir"`
	Pattern      string      `json:"pattern"`
	ProtectInUse bool        `json:"protect_in_use"`
	Sweeps       int         `json:"sweeps"`
	LastSweep    *time.Time  `json:"last_sweep,omitempty"`
	LastReport   SweepReport `json:"last_report"`
}

// State implements introspection.Introspectable.
func (r *Reaper) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return ReaperState{
		Dir:          r.config.Dir,
		Pattern:      r.config.Pattern,
		ProtectInUse: r.config.InUse != nil,
		Sweeps:       r.sweeps,
		LastSweep:    r.lastSweep,
		LastReport:   r.lastReport,
	}
}

// ComponentType implements introspection.Component.
func (r *Reaper) ComponentType() string {
	return "reaper"
}

// Sweeps returns how many sweeps have completed.
func (r *Reaper) Sweeps() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sweeps
}

var _ introspection.Introspectable = (*Reaper)(nil)
var _ introspection.Component = (*Reaper)(nil)
