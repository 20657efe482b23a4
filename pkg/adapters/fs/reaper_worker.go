package fs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
)

// DefaultSweepInterval is the period between two cache sweeps.
const DefaultSweepInterval = 5 * time.Second

// ReaperWorker runs Reaper.Sweep on a fixed period until stopped.
type ReaperWorker struct {
	*worker.BaseWorker
	reaper   *Reaper
	interval time.Duration
	cancel   context.CancelFunc
}

// NewReaperWorker creates a worker sweeping reaper.Dir() every interval.
func NewReaperWorker(reaper *Reaper, interval time.Duration) *ReaperWorker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &ReaperWorker{
		BaseWorker: worker.NewBaseWorker("cache-reaper"),
		reaper:     reaper,
		interval:   interval,
	}
}

func (w *ReaperWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("reaper already started (status: %s)", status)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *ReaperWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *ReaperWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"dir":               w.reaper.Dir(),
			"interval":          w.interval.String(),
			"sweeps":            strconv.Itoa(w.reaper.Sweeps()),
		}
	})
}

// run sweeps on every tick. Sweep failures are logged and never end the loop.
func (w *ReaperWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("reaper panic: %v", recovered)
			if w.reaper.logger.Enabled(ctx, slog.LevelDebug) {
				w.reaper.logger.Error("reaper panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.reaper.logger.Error("reaper panic", "error", err)
			}
		}
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report, err := w.reaper.Sweep(ctx, w.reaper.Dir())
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.reaper.logger.Error("cache sweep failed", "dir", w.reaper.Dir(), "error", err)
				continue
			}
			if report.Deleted > 0 || report.Failed > 0 {
				w.reaper.logger.Info("cache swept",
					"dir", report.Dir,
					"deleted", report.Deleted,
					"missing", report.Missing,
					"failed", report.Failed,
					"skipped", report.Skipped,
				)
			}
		}
	}
}
