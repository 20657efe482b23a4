package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/introspection"
	"github.com/gofrs/flock"

	"github.com/aretw0/glance/pkg/adapters/command"
	"github.com/aretw0/glance/pkg/adapters/fs"
	"github.com/aretw0/glance/pkg/core"
)

// ErrSessionLocked is returned when another session holds the cache dir.
var ErrSessionLocked = errors.New("cache directory is in use by another session")

// ErrStorageDenied is returned when the storage gate refuses write access
// to the cache dir.
var ErrStorageDenied = errors.New("storage permission not granted")

// Session wires a Coordinator to its cache: the periodic reaper, the
// removal watcher and an advisory lock on the cache directory.
type Session struct {
	coordinator *core.Coordinator
	gate        core.CapabilityGate
	reaper      *fs.Reaper
	sweeper     *fs.ReaperWorker
	watcher     *fs.CacheWatcher
	lock        *flock.Flock
	cacheDir    string
	logger      *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
}

// SessionState exposes internal state for observability.
type SessionState struct {
	CacheDir    string `json:"cache_dir"`
	LockPath    string `json:"lock_path"`
	Started     bool   `json:"started"`
	Closed      bool   `json:"closed"`
	Coordinator any    `json:"coordinator"`
	Reaper      any    `json:"reaper"`
	Watching    bool   `json:"watching"`
}

// Open prepares a session: it checks the storage gate, resolves and creates
// the cache dir, takes the session lock and builds the components. Nothing
// runs until Start.
func Open(opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sandbox := o.devSafety && IsDevRun()
	dir, err := filepath.Abs(ResolveCacheDir(o.cacheDir, sandbox))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache dir: %w", err)
	}
	if sandbox {
		logger.Debug("running in SAFE mode (dev sandbox enabled)", "cache_dir", dir)
	}
	if err := checkStorage(o.storageGate, logger); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	lock := flock.New(dir + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionLocked, dir)
	}

	remover := o.remover
	if remover == nil {
		remover = fs.Remover{}
	}
	provider := o.provider
	switch {
	case provider != nil:
	case len(o.sourceImages) > 0:
		provider = fs.NewFileCamera(dir, o.sourceImages...)
	case o.captureCmd != "":
		provider = command.Camera{Runner: command.NewRunner(o.captureCmd, logger), Dir: dir}
	}

	var coord *core.Coordinator
	reaperCfg := fs.ReaperConfig{
		Dir:     dir,
		Pattern: o.sweepPattern,
		Remover: remover,
		Logger:  logger.With("component", "reaper"),
	}
	if o.protectInUse {
		reaperCfg.InUse = func(path string) bool { return coord.InUse(path) }
	}
	reaper, err := fs.NewReaper(reaperCfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	coord = core.NewCoordinator(core.Config{
		Gate:         o.gate,
		Provider:     provider,
		Recognizer:   o.recognizer,
		Remover:      remover,
		Clock:        o.clock,
		DisplayDelay: o.displayDelay,
		EventBuffer:  o.eventBuffer,
		Logger:       logger.With("component", "coordinator"),
	})

	s := &Session{
		coordinator: coord,
		gate:        o.gate,
		reaper:      reaper,
		lock:        lock,
		cacheDir:    dir,
		logger:      logger,
	}
	if o.sweepInterval >= 0 {
		s.sweeper = fs.NewReaperWorker(reaper, o.sweepInterval)
	}
	if o.watch {
		s.watcher = fs.NewCacheWatcher(dir, coord.MarkVanished, logger.With("component", "watcher"))
	}
	return s, nil
}

// checkStorage asks gate for write access to the cache dir, requesting it
// when not yet granted. A gate error counts as a denial.
func checkStorage(gate core.CapabilityGate, logger *slog.Logger) error {
	if gate == nil || gate.Granted() {
		return nil
	}
	granted, err := gate.Request(context.Background())
	if err != nil {
		logger.Error("error requesting storage permission", "error", err)
		return fmt.Errorf("%w: %w", ErrStorageDenied, err)
	}
	if !granted {
		return ErrStorageDenied
	}
	return nil
}

// Coordinator returns the session coordinator.
func (s *Session) Coordinator() *core.Coordinator { return s.coordinator }

// CacheDir returns the absolute cache directory in use.
func (s *Session) CacheDir() string { return s.cacheDir }

// Start checks the camera grant, then launches the background sweep and the
// cache watcher.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrTerminated
	}
	if s.started {
		return nil
	}

	if s.gate != nil && !s.gate.Granted() {
		granted := s.coordinator.RequestPermission(ctx)
		s.logger.Debug("camera permission checked", "granted", granted)
	}

	if s.sweeper != nil {
		if err := s.sweeper.Start(ctx); err != nil {
			return fmt.Errorf("failed to start reaper: %w", err)
		}
	}
	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			// The session still works without removal notifications.
			s.logger.Warn("cache watcher unavailable", "error", err)
			s.watcher = nil
		}
	}
	s.started = true
	s.logger.Info("session started", "cache_dir", s.cacheDir)
	return nil
}

// Sweep runs one reaper pass over the cache dir.
func (s *Session) Sweep(ctx context.Context) (fs.SweepReport, error) {
	return s.reaper.Sweep(ctx, s.cacheDir)
}

// Close tears the coordinator down, stops the workers and releases the
// session lock. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	s.coordinator.Teardown(ctx)

	var errs []error
	if started {
		if s.sweeper != nil {
			if err := s.sweeper.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("stop reaper: %w", err))
			}
		}
		if s.watcher != nil {
			if err := s.watcher.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("stop watcher: %w", err))
			}
		}
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	}

	s.logger.Info("session closed", "cache_dir", s.cacheDir)
	return errors.Join(errs...)
}

// State implements introspection.Introspectable.
func (s *Session) State() any {
	s.mu.Lock()
	started, closed := s.started, s.closed
	watching := s.watcher != nil && s.watcher.Active()
	s.mu.Unlock()

	return SessionState{
		CacheDir:    s.cacheDir,
		LockPath:    s.lock.Path(),
		Started:     started,
		Closed:      closed,
		Coordinator: s.coordinator.State(),
		Reaper:      s.reaper.State(),
		Watching:    watching,
	}
}

// ComponentType implements introspection.Component.
func (s *Session) ComponentType() string {
	return "session"
}

var _ introspection.Introspectable = (*Session)(nil)
var _ introspection.Component = (*Session)(nil)
