package fs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"
)

// CacheWatcher reports entries removed from the cache directory, whoever
// removed them.
type CacheWatcher struct {
	*worker.BaseWorker
	dir      string
	onRemove func(path string)
	logger   *slog.Logger
	cancel   context.CancelFunc

	mu      sync.RWMutex
	watcher *fsnotify.Watcher
	active  bool
}

// NewCacheWatcher creates a watcher calling onRemove for every removed or
// renamed entry of dir.
func NewCacheWatcher(dir string, onRemove func(path string), logger *slog.Logger) *CacheWatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CacheWatcher{
		BaseWorker: worker.NewBaseWorker("cache-watcher"),
		dir:        dir,
		onRemove:   onRemove,
		logger:     logger,
	}
}

func (w *CacheWatcher) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.watcher = watcher
	w.active = true
	w.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *CacheWatcher) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *CacheWatcher) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"dir":               w.dir,
		}
	})
}

// Active reports whether the event loop is running.
func (w *CacheWatcher) Active() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

func (w *CacheWatcher) run(ctx context.Context) error {
	w.mu.RLock()
	watcher := w.watcher
	w.mu.RUnlock()

	defer func() {
		w.mu.Lock()
		w.active = false
		w.mu.Unlock()
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Debug("cache entry removed", "path", event.Name)
				if w.onRemove != nil {
					w.onRemove(event.Name)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("fsnotify error", "error", err)
		}
	}
}
