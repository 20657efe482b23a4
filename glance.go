package glance

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/glance/internal/platform"
	"github.com/aretw0/glance/pkg/adapters/command"
	"github.com/aretw0/glance/pkg/core"
)

// --- Types ---

// Session is a running capture session.
type Session = platform.Session

// Config is the on-disk session configuration.
type Config = platform.Config

// State is a snapshot of the coordinator's observable state.
type State = core.State

// Event is a coordinator lifecycle event.
type Event = core.Event

// --- Configuration ---

// Option defines a functional option for configuring a session.
type Option = platform.Option

// WithLogger sets the logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithCacheDir sets the capture cache directory.
func WithCacheDir(dir string) Option {
	return platform.WithCacheDir(dir)
}

// WithDisplayDelay sets how long a captured artifact stays visible.
func WithDisplayDelay(d time.Duration) Option {
	return platform.WithDisplayDelay(d)
}

// WithSweepInterval sets the period of the background cache sweep.
func WithSweepInterval(d time.Duration) Option {
	return platform.WithSweepInterval(d)
}

// WithSweepPattern restricts sweeps to matching entry names.
func WithSweepPattern(pattern string) Option {
	return platform.WithSweepPattern(pattern)
}

// WithProtectInUse makes sweeps skip the displayed artifact's file.
func WithProtectInUse(protect bool) Option {
	return platform.WithProtectInUse(protect)
}

// WithEventBuffer sets the size of the event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithWatcher enables or disables the cache directory watcher.
func WithWatcher(enabled bool) Option {
	return platform.WithWatcher(enabled)
}

// WithDevSafety controls the `go run` cache sandbox.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithGate sets the camera permission gate.
func WithGate(gate core.CapabilityGate) Option {
	return platform.WithGate(gate)
}

// WithStorageGate sets the gate asked for write access to the cache dir.
func WithStorageGate(gate core.CapabilityGate) Option {
	return platform.WithStorageGate(gate)
}

// WithProvider sets the capture provider.
func WithProvider(provider core.CaptureProvider) Option {
	return platform.WithProvider(provider)
}

// WithCaptureCommand captures by running an external grabber.
func WithCaptureCommand(commandLine string) Option {
	return platform.WithCaptureCommand(commandLine)
}

// WithSourceImages captures by copying existing images into the cache dir.
func WithSourceImages(paths ...string) Option {
	return platform.WithSourceImages(paths...)
}

// WithRecognizer sets the text recognizer.
func WithRecognizer(recognizer core.Recognizer) Option {
	return platform.WithRecognizer(recognizer)
}

// WithRemover replaces the filesystem remover.
func WithRemover(remover core.Remover) Option {
	return platform.WithRemover(remover)
}

// WithClock replaces the clock driving display expiry.
func WithClock(clock core.Clock) Option {
	return platform.WithClock(clock)
}

// --- Adapters ---

// CommandRecognizer runs an OCR command line such as "tesseract {path} stdout".
func CommandRecognizer(commandLine string) core.Recognizer {
	return command.Recognizer{Runner: command.NewRunner(commandLine, nil)}
}

// --- Factory ---

// New opens a session and starts its background workers.
func New(ctx context.Context, opts ...Option) (*Session, error) {
	return platform.New(ctx, opts...)
}

// Open prepares a session without starting it.
func Open(opts ...Option) (*Session, error) {
	return platform.Open(opts...)
}

// ErrConfigNotFound is returned by FindConfig when no config file exists.
var ErrConfigNotFound = platform.ErrConfigNotFound

// DefaultConfig returns the settings `glance init` writes.
func DefaultConfig() Config {
	return platform.DefaultConfig()
}

// LoadConfig reads a YAML or TOML config file.
func LoadConfig(path string) (Config, error) {
	return platform.LoadConfig(path)
}

// FindConfig looks upwards from startDir for a glance config file.
func FindConfig(startDir string) (string, error) {
	return platform.FindConfig(startDir)
}

// DefaultCacheDir returns the default capture cache directory.
func DefaultCacheDir() string {
	return platform.DefaultCacheDir()
}
