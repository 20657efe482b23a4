// Package glance is the Composition Root for the glance capture session.
//
// It connects the resource lifecycle coordinator (pkg/core) with the
// filesystem and command adapters using the Hexagonal Architecture pattern.
//
// A session takes photos through a capture provider, runs text recognition
// on them, shows each result for a fixed display window and guarantees that
// every photo file it produced is deleted exactly once, whether the window
// expires, a newer photo supersedes it, or the session ends.
//
// Features:
//
//   - **Exactly-once cleanup**: every captured file is removed once, and a
//     file already gone counts as removed.
//   - **No stale results**: a recognition that finishes after its photo was
//     superseded is dropped.
//   - **Cache reaper**: a periodic sweep empties the capture cache dir.
//   - **Pluggable devices**: cameras, OCR engines and permission probes are
//     external commands or in-process implementations of the core ports.
//
// Usage:
//
//	s, err := glance.New(ctx,
//		glance.WithCacheDir(dir),
//		glance.WithCaptureCommand("fswebcam --no-banner {path}"),
//		glance.WithRecognizer(glance.CommandRecognizer("tesseract {path} stdout")),
//		glance.WithLogger(logger),
//	)
//	defer s.Close(ctx)
//
//	s.Coordinator().RequestCapture()
package glance
