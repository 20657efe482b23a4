package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync/atomic"
	"time"
)

// heldArtifact is the coordinator's private record for one capture.
type heldArtifact struct {
	Artifact
	generation  uint64
	recognizing bool
	timer       Timer
	deleted     atomic.Bool
}

func (h *heldArtifact) event(t EventType, at time.Time) Event {
	return Event{
		Type:       t,
		ArtifactID: h.ID,
		Path:       h.Path,
		Timestamp:  at.Unix(),
	}
}

// deleteOnce unlinks the artifact's file unless an earlier call already did.
// It reports whether this call issued the unlink. A missing file counts as
// deleted; any other failure is logged and swallowed.
func (c *Coordinator) deleteOnce(ctx context.Context, h *heldArtifact) bool {
	if h == nil || !h.deleted.CompareAndSwap(false, true) {
		return false
	}
	if c.remover == nil {
		c.logger.Warn("no remover configured, leaving file behind", "path", h.Path)
		return true
	}

	err := c.remover.Remove(ctx, h.Path)
	switch {
	case err == nil:
		c.logger.Debug("deleted file", "path", h.Path)
	case errors.Is(err, fs.ErrNotExist):
		c.logger.Debug("file already gone", "path", h.Path)
	default:
		c.logger.Warn("error deleting file", "path", h.Path, "error", fmt.Errorf("%w: %w", ErrDeletion, err))
		return true
	}
	c.publish(h.event(EventDeleted, c.clock.Now()))
	return true
}
