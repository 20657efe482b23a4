package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

// Gate is a settable core.CapabilityGate.
type Gate struct {
	granted    atomic.Bool
	RequestErr error
	// GrantOnRequest is the state Request switches to when RequestErr is nil.
	GrantOnRequest bool
}

// NewGate returns a gate in the given state.
func NewGate(granted bool) *Gate {
	g := &Gate{GrantOnRequest: true}
	g.granted.Store(granted)
	return g
}

func (g *Gate) Granted() bool { return g.granted.Load() }

func (g *Gate) Request(ctx context.Context) (bool, error) {
	if g.RequestErr != nil {
		return false, g.RequestErr
	}
	g.granted.Store(g.GrantOnRequest)
	return g.GrantOnRequest, nil
}

// RecordingRemover counts Remove calls per path and, when Unlink is set,
// removes the file from disk.
type RecordingRemover struct {
	Unlink bool

	mu    sync.Mutex
	calls map[string]int
	order []string
}

func (r *RecordingRemover) Remove(ctx context.Context, path string) error {
	r.mu.Lock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[path]++
	r.order = append(r.order, path)
	r.mu.Unlock()

	if !r.Unlink {
		return nil
	}
	return os.Remove(path)
}

// Calls returns how many times path was removed.
func (r *RecordingRemover) Calls(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

// Order returns every removed path in call order.
func (r *RecordingRemover) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// WriteFile creates path (and its parent) with a small payload.
func WriteFile(t testing.TB, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("\xff\xd8\xff"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
