package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"
)

// Config wires the coordinator to its collaborators.
type Config struct {
	Gate         CapabilityGate
	Provider     CaptureProvider
	Recognizer   Recognizer
	Remover      Remover
	Clock        Clock
	DisplayDelay time.Duration
	EventBuffer  int // zero means 100
	Logger       *slog.Logger
}

// Coordinator owns the current artifact/result pair, its display window and
// the deletion of its backing file.
//
// All collaborator calls run outside the lock. Every async callback is
// tagged with the held record it was issued for and is dropped when that
// record is no longer current.
type Coordinator struct {
	gate         CapabilityGate
	provider     CaptureProvider
	recognizer   Recognizer
	remover      Remover
	clock        Clock
	displayDelay time.Duration
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	current    *heldArtifact
	result     *Result
	capturing  bool
	terminated bool
	generation uint64
	lastErr    error

	eventsMu     sync.RWMutex
	events       chan Event
	eventsClosed bool
	eventBuffer  int
}

// NewCoordinator creates a Coordinator. Call Teardown when the session ends.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.DisplayDelay <= 0 {
		cfg.DisplayDelay = DefaultDisplayDelay
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		gate:         cfg.Gate,
		provider:     cfg.Provider,
		recognizer:   cfg.Recognizer,
		remover:      cfg.Remover,
		clock:        cfg.Clock,
		displayDelay: cfg.DisplayDelay,
		logger:       cfg.Logger,
		ctx:          ctx,
		cancel:       cancel,
		events:       make(chan Event, cfg.EventBuffer),
		eventBuffer:  cfg.EventBuffer,
	}
}

// Events returns the lifecycle event stream. It is closed by Teardown.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// RequestPermission asks the gate for the camera grant.
// A gate error is logged and treated as a denial.
func (c *Coordinator) RequestPermission(ctx context.Context) bool {
	if c.gate == nil {
		return true
	}
	granted, err := c.gate.Request(ctx)
	if err != nil {
		c.logger.Error("error requesting camera permission", "error", err)
		return false
	}
	return granted
}

// RequestCapture starts a capture cycle and returns immediately.
// It reports whether a new cycle was started: a request while a capture is
// in flight, or after Teardown, is ignored.
func (c *Coordinator) RequestCapture() bool {
	granted := c.gate == nil || c.gate.Granted()

	c.mu.Lock()
	if c.terminated || c.capturing {
		c.mu.Unlock()
		return false
	}
	switch {
	case c.provider == nil:
		c.lastErr = ErrNoDevice
	case !granted:
		c.lastErr = ErrPermissionDenied
	default:
		c.capturing = true
		c.lastErr = nil
	}
	started := c.capturing
	err := c.lastErr
	c.mu.Unlock()

	if !started {
		c.logger.Warn("capture refused", "error", err)
		return false
	}

	lifecycle.Go(c.ctx, func(ctx context.Context) error {
		c.capture(ctx)
		return nil
	}, lifecycle.WithErrorHandler(c.handlePanic("capture", c.abortCapture)))
	return true
}

func (c *Coordinator) capture(ctx context.Context) {
	path, err := c.provider.Capture(ctx)

	c.mu.Lock()
	c.capturing = false
	if err != nil {
		c.lastErr = fmt.Errorf("%w: %w", ErrCapture, err)
		c.mu.Unlock()
		c.logger.Warn("capture failed", "error", err)
		c.publish(Event{Type: EventCaptureFailed, Timestamp: c.clock.Now().Unix()})
		return
	}

	if c.terminated {
		c.mu.Unlock()
		c.logger.Debug("capture completed after teardown, discarding", "path", path)
		orphan := &heldArtifact{Artifact: Artifact{Path: path}}
		c.deleteOnce(context.WithoutCancel(ctx), orphan)
		return
	}

	now := c.clock.Now()
	c.generation++
	held := &heldArtifact{
		Artifact: Artifact{
			ID:        uuid.NewString(),
			Path:      path,
			CreatedAt: now,
			ExpiresAt: now.Add(c.displayDelay),
		},
		generation:  c.generation,
		recognizing: true,
	}

	prev := c.current
	if prev != nil {
		prev.timer.Stop()
	}
	c.current = held
	c.result = nil
	c.lastErr = nil
	held.timer = c.clock.AfterFunc(c.displayDelay, func() { c.expire(held) })
	c.mu.Unlock()

	if prev != nil {
		c.logger.Debug("artifact superseded", "id", prev.ID, "path", prev.Path, "by", held.ID)
		c.publish(prev.event(EventSuperseded, now))
		c.deleteOnce(context.WithoutCancel(ctx), prev)
	}

	c.logger.Info("photo captured", "id", held.ID, "path", held.Path)
	c.publish(held.event(EventCaptured, now))

	lifecycle.Go(ctx, func(ctx context.Context) error {
		c.recognize(ctx, held)
		return nil
	}, lifecycle.WithErrorHandler(c.handlePanic("recognition", nil)))
}

func (c *Coordinator) recognize(ctx context.Context, held *heldArtifact) {
	var (
		text string
		err  error
	)
	if c.recognizer == nil {
		err = fmt.Errorf("no recognizer configured")
	} else {
		text, err = c.recognizer.Recognize(ctx, held.Path)
	}

	c.mu.Lock()
	if c.current != held {
		c.mu.Unlock()
		c.logger.Debug("discarding stale recognition", "id", held.ID, "generation", held.generation)
		return
	}
	held.recognizing = false
	if err != nil {
		c.result = nil
		c.lastErr = fmt.Errorf("%w: %w", ErrRecognition, err)
	} else {
		c.result = &Result{ArtifactID: held.ID, Text: text}
	}
	c.mu.Unlock()

	now := c.clock.Now()
	if err != nil {
		c.logger.Warn("recognition failed", "id", held.ID, "error", err)
		c.publish(held.event(EventRecognitionFailed, now))
		return
	}
	c.logger.Info("text recognized", "id", held.ID, "chars", len(text))
	c.publish(held.event(EventRecognized, now))
}

// expire runs when a display window closes without being superseded.
func (c *Coordinator) expire(held *heldArtifact) {
	c.mu.Lock()
	if c.current != held {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.result = nil
	c.mu.Unlock()

	c.logger.Debug("display window expired", "id", held.ID)
	c.publish(held.event(EventExpired, c.clock.Now()))
	c.deleteOnce(context.WithoutCancel(c.ctx), held)
}

// CurrentState returns a snapshot of the observable state.
func (c *Coordinator) CurrentState() State {
	granted := c.gate == nil || c.gate.Granted()

	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Phase:     c.phaseLocked(),
		Capturing: c.capturing,
		Granted:   granted,
	}
	if c.current != nil {
		a := c.current.Artifact
		s.Artifact = &a
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// Err returns the most recent capture or recognition failure, if any.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Coordinator) phaseLocked() Phase {
	switch {
	case c.terminated:
		return PhaseTerminated
	case c.capturing:
		return PhaseCapturing
	case c.current == nil:
		return PhaseIdle
	case c.current.recognizing:
		return PhaseRecognizing
	default:
		return PhaseHolding
	}
}

// InUse reports whether path backs the artifact currently held.
func (c *Coordinator) InUse(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && samePath(c.current.Path, path)
}

// MarkVanished records that the held artifact's file was removed externally.
// Paths that do not back the held artifact are ignored.
func (c *Coordinator) MarkVanished(path string) {
	c.mu.Lock()
	held := c.current
	if held == nil || !samePath(held.Path, path) || held.deleted.Load() || held.Vanished {
		c.mu.Unlock()
		return
	}
	held.Vanished = true
	c.mu.Unlock()

	c.logger.Warn("displayed artifact removed from cache", "id", held.ID, "path", held.Path)
	c.publish(held.event(EventVanished, c.clock.Now()))
}

// Teardown ends the session: pending work is canceled, the display timer is
// stopped and the held artifact, if any, is deleted. It is safe to call more
// than once.
func (c *Coordinator) Teardown(ctx context.Context) {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return
	}
	c.terminated = true
	held := c.current
	c.current = nil
	c.result = nil
	if held != nil {
		held.timer.Stop()
	}
	c.mu.Unlock()

	c.cancel()
	if held != nil {
		c.deleteOnce(ctx, held)
	}
	c.publish(Event{Type: EventTerminated, Timestamp: c.clock.Now().Unix()})

	c.eventsMu.Lock()
	c.eventsClosed = true
	close(c.events)
	c.eventsMu.Unlock()
}

// publish never blocks; events are dropped when the buffer is full.
func (c *Coordinator) publish(e Event) {
	c.eventsMu.RLock()
	defer c.eventsMu.RUnlock()
	if c.eventsClosed {
		return
	}
	select {
	case c.events <- e:
	default:
		c.logger.Debug("event buffer full, dropping event", "event", e.String())
	}
}

func (c *Coordinator) handlePanic(op string, onPanic func(error)) func(error) {
	return func(err error) {
		c.logger.Error(op+" panic", "error", err)
		if onPanic != nil {
			onPanic(err)
		}
	}
}

// abortCapture frees the capture slot after the provider panicked.
func (c *Coordinator) abortCapture(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capturing {
		c.capturing = false
		c.lastErr = fmt.Errorf("%w: %w", ErrCapture, err)
	}
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
