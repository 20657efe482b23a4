package core

import (
	"context"
	"time"
)

// CapabilityGate reports and requests the camera grant.
type CapabilityGate interface {
	// Granted reports the current grant state without prompting.
	Granted() bool

	// Request asks for the grant and returns the resulting state.
	Request(ctx context.Context) (bool, error)
}

// CaptureProvider produces a photo on disk and returns its path.
// Each successful call must return a path not returned before.
type CaptureProvider interface {
	Capture(ctx context.Context) (string, error)
}

// Recognizer maps an image file to the text found in it.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// Remover unlinks a single path.
// Implementations must wrap fs.ErrNotExist when the path is already gone so
// callers can treat that case as a successful cleanup.
type Remover interface {
	Remove(ctx context.Context, path string) error
}

// Timer is a cancelable pending callback.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the
	// callback already fired or the timer was already stopped.
	Stop() bool
}

// Clock abstracts time so display windows can be driven deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// CaptureFunc adapts a function to CaptureProvider.
type CaptureFunc func(ctx context.Context) (string, error)

func (f CaptureFunc) Capture(ctx context.Context) (string, error) { return f(ctx) }

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, path string) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// RemoverFunc adapts a function to Remover.
type RemoverFunc func(ctx context.Context, path string) error

func (f RemoverFunc) Remove(ctx context.Context, path string) error { return f(ctx, path) }
