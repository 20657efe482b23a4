package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/glance/pkg/core"
)

// DefaultPattern matches every entry name.
const DefaultPattern = "*"

// ReaperConfig holds the configuration for a cache reaper.
type ReaperConfig struct {
	Dir     string
	Pattern string // doublestar pattern matched against entry names
	Remover core.Remover
	// InUse, when set, exempts matching paths from a sweep. Leaving it nil
	// keeps the sweep indiscriminate.
	InUse  func(path string) bool
	Logger *slog.Logger
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	Dir     string        `json:"dir"`
	Deleted int           `json:"deleted"`
	Missing int           `json:"missing"` // already gone when we got to them
	Failed  int           `json:"failed"`
	Skipped int           `json:"skipped"` // in use or still being written
	Errors  []error       `json:"-"`
	Elapsed time.Duration `json:"elapsed"`
}

// Reaper deletes every entry found directly under a cache directory.
type Reaper struct {
	config  ReaperConfig
	remover core.Remover
	logger  *slog.Logger

	mu         sync.RWMutex
	sweeps     int
	lastSweep  *time.Time
	lastReport SweepReport
}

// NewReaper validates config and returns a Reaper.
func NewReaper(config ReaperConfig) (*Reaper, error) {
	if config.Pattern == "" {
		config.Pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(config.Pattern) {
		return nil, fmt.Errorf("invalid sweep pattern: %q", config.Pattern)
	}

	r := &Reaper{
		config:  config,
		remover: config.Remover,
		logger:  config.Logger,
	}
	if r.remover == nil {
		r.remover = Remover{}
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r, nil
}

// Dir returns the configured cache directory.
func (r *Reaper) Dir() string {
	return r.config.Dir
}

// Sweep lists the direct entries of dir and tries to delete each matching
// one. A failed entry never aborts the rest of the sweep. Entries that vanish
// before we reach them are counted as Missing. A missing dir is an empty
// sweep; only a listing failure or cancellation is returned as an error.
func (r *Reaper) Sweep(ctx context.Context, dir string) (SweepReport, error) {
	start := time.Now()
	report := SweepReport{Dir: dir}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, iofs.ErrNotExist) {
		report.Elapsed = time.Since(start)
		r.record(report)
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("failed to list cache dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(start)
			r.record(report)
			return report, err
		}

		match, err := doublestar.Match(r.config.Pattern, entry.Name())
		if err != nil || !match {
			continue
		}

		// Captures still being staged by writeAtomic.
		if strings.HasPrefix(entry.Name(), TempFilePrefix) {
			report.Skipped++
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if r.config.InUse != nil && r.config.InUse(path) {
			report.Skipped++
			r.logger.Debug("skipping file in use", "path", path)
			continue
		}

		err = r.remover.Remove(ctx, path)
		switch {
		case err == nil:
			report.Deleted++
			r.logger.Debug("deleted file", "path", path)
		case errors.Is(err, iofs.ErrNotExist):
			report.Missing++
			r.logger.Debug("file already gone", "path", path)
		default:
			report.Failed++
			report.Errors = append(report.Errors, err)
			r.logger.Warn("error deleting file", "path", path, "error", err)
		}
	}

	report.Elapsed = time.Since(start)
	r.record(report)
	if report.Failed > 0 {
		r.logger.Warn("cleanup finished with errors", "dir", dir, "deleted", report.Deleted, "failed", report.Failed)
	} else {
		r.logger.Debug("cleanup successful", "dir", dir, "deleted", report.Deleted, "missing", report.Missing, "skipped", report.Skipped)
	}
	return report, nil
}

func (r *Reaper) record(report SweepReport) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps++
	r.lastSweep = &now
	r.lastReport = report
}
