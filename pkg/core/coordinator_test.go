package core_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/glance/internal/testsupport"
	"github.com/aretw0/glance/pkg/core"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	clock    *testsupport.FakeClock
	gate     *testsupport.Gate
	remover  *testsupport.RecordingRemover
	coord    *core.Coordinator
	captures atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		clock:   testsupport.NewFakeClock(epoch),
		gate:    testsupport.NewGate(true),
		remover: &testsupport.RecordingRemover{},
	}
}

// sequence hands out paths in order, then generated capture-N.jpg names.
func (h *harness) sequence(paths ...string) core.CaptureProvider {
	return core.CaptureFunc(func(ctx context.Context) (string, error) {
		n := int(h.captures.Add(1))
		if n <= len(paths) {
			return paths[n-1], nil
		}
		return fmt.Sprintf("/cache/capture-%d.jpg", n), nil
	})
}

func (h *harness) start(t *testing.T, provider core.CaptureProvider, recognizer core.Recognizer) *core.Coordinator {
	t.Helper()
	h.coord = core.NewCoordinator(core.Config{
		Gate:         h.gate,
		Provider:     provider,
		Recognizer:   recognizer,
		Remover:      h.remover,
		Clock:        h.clock,
		DisplayDelay: 5 * time.Second,
	})
	coord := h.coord
	t.Cleanup(func() { coord.Teardown(context.Background()) })
	return coord
}

func textRecognizer(text string) core.Recognizer {
	return core.RecognizerFunc(func(ctx context.Context, path string) (string, error) {
		return text, nil
	})
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func waitHolding(t *testing.T, c *core.Coordinator, path string) {
	t.Helper()
	waitFor(t, func() bool {
		s := c.CurrentState()
		return s.Artifact != nil && s.Artifact.Path == path && s.Phase == core.PhaseHolding
	}, "artifact "+path+" never settled")
}

func TestCoordinator_ExampleScenario(t *testing.T) {
	h := newHarness(t)
	h.start(t, h.sequence("/cache/a.jpg"), textRecognizer("HELLO"))

	require.True(t, h.coord.RequestCapture())
	waitHolding(t, h.coord, "/cache/a.jpg")

	h.clock.Advance(1 * time.Second)
	s := h.coord.CurrentState()
	require.NotNil(t, s.Artifact)
	require.NotNil(t, s.Result)
	assert.Equal(t, "/cache/a.jpg", s.Artifact.Path)
	assert.Equal(t, "HELLO", s.Result.Text)
	assert.Equal(t, s.Artifact.ID, s.Result.ArtifactID)
	assert.Equal(t, epoch.Add(5*time.Second), s.Artifact.ExpiresAt)
	assert.Zero(t, h.remover.Calls("/cache/a.jpg"), "file deleted while still displayed")

	h.clock.Advance(4 * time.Second)
	s = h.coord.CurrentState()
	assert.Nil(t, s.Artifact)
	assert.Nil(t, s.Result)
	assert.Equal(t, core.PhaseIdle, s.Phase)
	assert.Equal(t, 1, h.remover.Calls("/cache/a.jpg"))
}

func TestCoordinator_DisplayExpiresExactlyAtDelay(t *testing.T) {
	h := newHarness(t)
	h.start(t, h.sequence("/cache/a.jpg"), textRecognizer("x"))

	require.True(t, h.coord.RequestCapture())
	waitHolding(t, h.coord, "/cache/a.jpg")

	h.clock.Advance(5*time.Second - time.Nanosecond)
	assert.NotNil(t, h.coord.CurrentState().Artifact, "artifact must be visible before T+5")

	h.clock.Advance(time.Nanosecond)
	assert.Nil(t, h.coord.CurrentState().Artifact, "artifact must be gone at T+5")
	assert.Equal(t, 0, h.clock.Pending())
}

func TestCoordinator_SupersessionCancelsOldTimer(t *testing.T) {
	h := newHarness(t)
	h.start(t, h.sequence("/cache/a.jpg", "/cache/b.jpg"), textRecognizer("x"))

	require.True(t, h.coord.RequestCapture())
	waitHolding(t, h.coord, "/cache/a.jpg")

	h.clock.Advance(2 * time.Second)
	require.True(t, h.coord.RequestCapture())
	waitHolding(t, h.coord, "/cache/b.jpg")
	assert.Equal(t, 1, h.remover.Calls("/cache/a.jpg"), "superseded file must be deleted")
	assert.Equal(t, 1, h.clock.Pending(), "only the new display window may be armed")

	// T+6: the first window would have closed at T+5.
	h.clock.Advance(4 * time.Second)
	s := h.coord.CurrentState()
	require.NotNil(t, s.Artifact)
	assert.Equal(t, "/cache/b.jpg", s.Artifact.Path)
	assert.Zero(t, h.remover.Calls("/cache/b.jpg"))

	// T+7: the second window closes.
	h.clock.Advance(1 * time.Second)
	assert.Nil(t, h.coord.CurrentState().Artifact)
	assert.Equal(t, 1, h.remover.Calls("/cache/a.jpg"))
	assert.Equal(t, 1, h.remover.Calls("/cache/b.jpg"))
}

func TestCoordinator_StaleRecognitionIsDiscarded(t *testing.T) {
	tests := []struct {
		name    string
		staleFn func() (string, error)
	}{
		{"stale success", func() (string, error) { return "OLD", nil }},
		{"stale failure", func() (string, error) { return "", errors.New("engine crashed") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			staleDone := make(chan struct{})
			recognizer := core.RecognizerFunc(func(ctx context.Context, path string) (string, error) {
				if path == "/cache/a.jpg" {
					<-release
					defer close(staleDone)
					return tt.staleFn()
				}
				return "NEW", nil
			})
			h := newHarness(t)
			h.start(t, h.sequence("/cache/a.jpg", "/cache/b.jpg"), recognizer)

			require.True(t, h.coord.RequestCapture())
			waitFor(t, func() bool {
				return h.coord.CurrentState().Phase == core.PhaseRecognizing
			}, "first recognition never started")

			require.True(t, h.coord.RequestCapture())
			waitHolding(t, h.coord, "/cache/b.jpg")

			close(release)
			<-staleDone

			assert.Never(t, func() bool {
				s := h.coord.CurrentState()
				return s.Result == nil || s.Result.Text != "NEW" || s.LastError != ""
			}, 100*time.Millisecond, 5*time.Millisecond)
		})
	}
}

func TestCoordinator_CaptureWhileCapturingIsNoop(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	h := newHarness(t)
	h.start(t, core.CaptureFunc(func(ctx context.Context) (string, error) {
		n := calls.Add(1)
		<-release
		return fmt.Sprintf("/cache/%d.jpg", n), nil
	}), textRecognizer("x"))

	require.True(t, h.coord.RequestCapture())
	assert.False(t, h.coord.RequestCapture(), "second request must be ignored")
	assert.True(t, h.coord.CurrentState().Capturing)

	close(release)
	waitHolding(t, h.coord, "/cache/1.jpg")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCoordinator_CaptureFailure(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	h := newHarness(t)
	h.start(t, core.CaptureFunc(func(ctx context.Context) (string, error) {
		if fail.Load() {
			return "", errors.New("sensor busy")
		}
		return "/cache/ok.jpg", nil
	}), textRecognizer("x"))

	require.True(t, h.coord.RequestCapture())
	waitFor(t, func() bool { return h.coord.Err() != nil }, "capture error never recorded")

	s := h.coord.CurrentState()
	assert.Equal(t, core.PhaseIdle, s.Phase)
	assert.Nil(t, s.Artifact)
	assert.Contains(t, s.LastError, "sensor busy")
	assert.ErrorIs(t, h.coord.Err(), core.ErrCapture)

	fail.Store(false)
	require.True(t, h.coord.RequestCapture(), "user may retry after a failed capture")
	waitHolding(t, h.coord, "/cache/ok.jpg")
	assert.NoError(t, h.coord.Err())
}

func TestCoordinator_RecognitionFailureKeepsArtifact(t *testing.T) {
	recognizer := core.RecognizerFunc(func(ctx context.Context, path string) (string, error) {
		return "", errors.New("no text found")
	})
	h := newHarness(t)
	h.start(t, h.sequence("/cache/a.jpg"), recognizer)

	require.True(t, h.coord.RequestCapture())
	waitHolding(t, h.coord, "/cache/a.jpg")

	s := h.coord.CurrentState()
	assert.Nil(t, s.Result)
	assert.NotNil(t, s.Artifact)
	assert.ErrorIs(t, h.coord.Err(), core.ErrRecognition)

	h.clock.Advance(5 * time.Second)
	assert.Nil(t, h.coord.CurrentState().Artifact)
	assert.Equal(t, 1, h.remover.Calls("/cache/a.jpg"))
}

func TestCoordinator_TeardownDeletesHeldArtifactOnce(t *testing.T) {
	h := newHarness(t)
	h.start(t, h.sequence("/cache/a.jpg"), textRecognizer("x"))

	require.True(t, h.coord.RequestCapture())
	waitHolding(t, h.coord, "/cache/a.jpg")

	h.coord.Teardown(context.Background())
	h.coord.Teardown(context.Background())
	h.clock.Advance(time.Minute)

	assert.Equal(t, 1, h.remover.Calls("/cache/a.jpg"))
	assert.Equal(t, core.PhaseTerminated, h.coord.CurrentState().Phase)
	assert.False(t, h.coord.RequestCapture())
	assert.Equal(t, 0, h.clock.Pending())
}

func TestCoordinator_TeardownAfterExpiryDoesNotDeleteAgain(t *testing.T) {
	h := newHarness(t)
	h.start(t, h.sequence("/cache/a.jpg"), textRecognizer("x"))

	require.True(t, h.coord.RequestCapture())
	waitHolding(t, h.coord, "/cache/a.jpg")
	h.clock.Advance(5 * time.Second)
	h.coord.Teardown(context.Background())

	assert.Equal(t, 1, h.remover.Calls("/cache/a.jpg"))
}

func TestCoordinator_CaptureCompletingAfterTeardownIsDeleted(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t)
	h.start(t, core.CaptureFunc(func(ctx context.Context) (string, error) {
		<-release
		return "/cache/late.jpg", nil
	}), textRecognizer("x"))

	require.True(t, h.coord.RequestCapture())
	h.coord.Teardown(context.Background())
	close(release)

	waitFor(t, func() bool { return h.remover.Calls("/cache/late.jpg") == 1 }, "late capture never cleaned up")
	assert.Nil(t, h.coord.CurrentState().Artifact)
}

func TestCoordinator_Permissions(t *testing.T) {
	t.Run("Denied Until Requested", func(t *testing.T) {
		h := newHarness(t)
		h.gate = testsupport.NewGate(false)
		h.start(t, h.sequence("/cache/a.jpg"), textRecognizer("x"))

		assert.False(t, h.coord.RequestCapture())
		assert.ErrorIs(t, h.coord.Err(), core.ErrPermissionDenied)
		assert.False(t, h.coord.CurrentState().Granted)

		assert.True(t, h.coord.RequestPermission(context.Background()))
		assert.True(t, h.coord.RequestCapture())
		waitHolding(t, h.coord, "/cache/a.jpg")
	})

	t.Run("Request Error Means Denied", func(t *testing.T) {
		h := newHarness(t)
		h.start(t, h.sequence(), textRecognizer("x"))
		h.gate.RequestErr = errors.New("dialog dismissed")

		assert.False(t, h.coord.RequestPermission(context.Background()))
	})

	t.Run("No Device", func(t *testing.T) {
		h := newHarness(t)
		h.start(t, nil, textRecognizer("x"))

		assert.False(t, h.coord.RequestCapture())
		assert.ErrorIs(t, h.coord.Err(), core.ErrNoDevice)
	})
}

func TestCoordinator_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	testsupport.WriteFile(t, path)

	h := newHarness(t)
	h.remover.Unlink = true
	h.start(t, h.sequence(path), textRecognizer("x"))

	require.True(t, h.coord.RequestCapture())
	waitHolding(t, h.coord, path)

	// Someone else (the reaper) removes the file while it is displayed.
	require.NoError(t, os.Remove(path))
	h.coord.MarkVanished(path)
	s := h.coord.CurrentState()
	require.NotNil(t, s.Artifact)
	assert.True(t, s.Artifact.Vanished)

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, 1, h.remover.Calls(path))
	assert.NoError(t, h.coord.Err())
}

func TestCoordinator_InUse(t *testing.T) {
	h := newHarness(t)
	h.start(t, h.sequence("/cache/a.jpg"), textRecognizer("x"))

	assert.False(t, h.coord.InUse("/cache/a.jpg"))
	require.True(t, h.coord.RequestCapture())
	waitHolding(t, h.coord, "/cache/a.jpg")

	assert.True(t, h.coord.InUse("/cache/./a.jpg"))
	assert.False(t, h.coord.InUse("/cache/b.jpg"))

	h.clock.Advance(5 * time.Second)
	assert.False(t, h.coord.InUse("/cache/a.jpg"))
}

func TestCoordinator_EventStream(t *testing.T) {
	h := newHarness(t)
	h.start(t, h.sequence("/cache/a.jpg"), textRecognizer("HELLO"))

	require.True(t, h.coord.RequestCapture())
	waitHolding(t, h.coord, "/cache/a.jpg")
	h.clock.Advance(5 * time.Second)
	h.coord.Teardown(context.Background())

	var got []core.EventType
	for e := range h.coord.Events() {
		got = append(got, e.Type)
	}
	assert.Equal(t, []core.EventType{
		core.EventCaptured,
		core.EventRecognized,
		core.EventExpired,
		core.EventDeleted,
		core.EventTerminated,
	}, got)
}

// Random interleavings of capture, clock advance and teardown must never
// delete a path twice, and must leave every captured path deleted.
func TestCoordinator_ExactlyOnceDeletionUnderRandomSchedules(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			h := newHarness(t)
			h.start(t, h.sequence(), textRecognizer("x"))

			for step := 0; step < 30; step++ {
				switch rng.Intn(3) {
				case 0:
					n := h.captures.Load() + 1
					if h.coord.RequestCapture() {
						waitHolding(t, h.coord, fmt.Sprintf("/cache/capture-%d.jpg", n))
					}
				default:
					h.clock.Advance(time.Duration(rng.Intn(4000)) * time.Millisecond)
				}
			}
			h.coord.Teardown(context.Background())

			total := int(h.captures.Load())
			for i := 1; i <= total; i++ {
				path := fmt.Sprintf("/cache/capture-%d.jpg", i)
				assert.Equal(t, 1, h.remover.Calls(path), path)
			}
			assert.Len(t, h.remover.Order(), total)
		})
	}
}

func TestCoordinator_Introspection(t *testing.T) {
	h := newHarness(t)
	h.start(t, h.sequence("/cache/a.jpg"), textRecognizer("x"))

	require.True(t, h.coord.RequestCapture())
	waitHolding(t, h.coord, "/cache/a.jpg")

	state, ok := h.coord.State().(core.CoordinatorState)
	require.True(t, ok)
	assert.Equal(t, "/cache/a.jpg", state.HeldPath)
	assert.Equal(t, uint64(1), state.Generation)
	assert.Equal(t, "coordinator", h.coord.ComponentType())
}
