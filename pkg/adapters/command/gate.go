package command

import (
	"context"
	"errors"
	"os/exec"
	"sync/atomic"

	"github.com/aretw0/glance/pkg/core"
)

// StaticGate is a CapabilityGate with a fixed answer, for platforms where
// camera access is not gated.
type StaticGate bool

func (g StaticGate) Granted() bool { return bool(g) }

func (g StaticGate) Request(ctx context.Context) (bool, error) { return bool(g), nil }

// Gate asks an external program for camera access: exit status zero means
// granted. Check is run by Request; Granted returns the last answer.
type Gate struct {
	Check   Runner
	granted atomic.Bool
}

// NewGate returns a gate that reports denied until the first Request.
// A session runs that first Request when it starts.
func NewGate(check Runner) *Gate {
	return &Gate{Check: check}
}

func (g *Gate) Granted() bool { return g.granted.Load() }

func (g *Gate) Request(ctx context.Context) (bool, error) {
	if _, err := g.Check.Run(ctx, ""); err != nil {
		g.granted.Store(false)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			// A non-zero exit is an answer, not a failure.
			return false, nil
		}
		return false, err
	}
	g.granted.Store(true)
	return true, nil
}

var (
	_ core.CapabilityGate = StaticGate(true)
	_ core.CapabilityGate = (*Gate)(nil)
)
