package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/glance/pkg/core"
)

// options holds the internal configuration for a glance session.
type options struct {
	logger        *slog.Logger
	cacheDir      string
	displayDelay  time.Duration
	sweepInterval time.Duration
	sweepPattern  string
	protectInUse  bool
	eventBuffer   int
	watch         bool
	devSafety     bool
	captureCmd    string
	sourceImages  []string

	gate        core.CapabilityGate
	storageGate core.CapabilityGate
	provider    core.CaptureProvider
	recognizer  core.Recognizer
	remover     core.Remover
	clock       core.Clock
}

// Option defines a functional option for configuring a session.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		displayDelay: core.DefaultDisplayDelay,
		watch:        true,
		devSafety:    true,
	}
}

// WithLogger sets the logger shared by every component of the session.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCacheDir sets the directory captures are written to and swept from.
// Defaults to DefaultCacheDir().
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithDisplayDelay sets how long a captured artifact stays visible.
func WithDisplayDelay(d time.Duration) Option {
	return func(o *options) {
		o.displayDelay = d
	}
}

// WithSweepInterval sets the period of the background cache sweep.
// A negative interval disables the background sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		o.sweepInterval = d
	}
}

// WithSweepPattern restricts sweeps to entries whose name matches pattern.
func WithSweepPattern(pattern string) Option {
	return func(o *options) {
		o.sweepPattern = pattern
	}
}

// WithProtectInUse makes sweeps skip the file backing the displayed artifact.
// Sweeps are indiscriminate by default.
func WithProtectInUse(protect bool) Option {
	return func(o *options) {
		o.protectInUse = protect
	}
}

// WithEventBuffer sets the size of the coordinator event buffer.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithWatcher enables or disables the cache directory watcher.
func WithWatcher(enabled bool) Option {
	return func(o *options) {
		o.watch = enabled
	}
}

// WithDevSafety controls the sandbox applied when running via `go run` or
// `go test`: the cache dir is re-rooted under the temp dir unless it already
// lives there.
//
// CAUTION: sweeps delete everything in the cache dir. Only disable this if
// the configured directory holds nothing but captures.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithGate sets the camera permission gate. Without one, access is granted.
func WithGate(gate core.CapabilityGate) Option {
	return func(o *options) {
		o.gate = gate
	}
}

// WithStorageGate sets the gate asked for write access to the cache dir
// before a session creates it. Without one, access is assumed.
func WithStorageGate(gate core.CapabilityGate) Option {
	return func(o *options) {
		o.storageGate = gate
	}
}

// WithProvider sets the capture provider. Without one, captures fail with
// core.ErrNoDevice.
func WithProvider(provider core.CaptureProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithCaptureCommand captures by running commandLine, which must write the
// photo to the {path} placeholder inside the session cache dir. Ignored when
// WithProvider is also given.
func WithCaptureCommand(commandLine string) Option {
	return func(o *options) {
		o.captureCmd = commandLine
	}
}

// WithSourceImages captures by copying the given images, in turn, into the
// session cache dir. Ignored when WithProvider is also given.
func WithSourceImages(paths ...string) Option {
	return func(o *options) {
		o.sourceImages = paths
	}
}

// WithRecognizer sets the text recognizer.
func WithRecognizer(recognizer core.Recognizer) Option {
	return func(o *options) {
		o.recognizer = recognizer
	}
}

// WithRemover replaces the filesystem remover used by the coordinator and the reaper.
func WithRemover(remover core.Remover) Option {
	return func(o *options) {
		o.remover = remover
	}
}

// WithClock replaces the system clock driving display expiry.
func WithClock(clock core.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}
