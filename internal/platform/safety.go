package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// IsDevRun checks if the current process is running via `go run` or `go test`.
// Both build their binaries in temporary directories.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}

	if strings.HasPrefix(strings.ToLower(exe), strings.ToLower(os.TempDir())) {
		return true
	}
	return strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe")
}

// ResolveCacheDir returns the directory a session actually uses.
// When sandboxed, a directory outside the temp dir is re-rooted to
// <tmp>/glance-dev/<base> so sweeps never touch a real cache.
func ResolveCacheDir(dir string, sandbox bool) string {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	clean := filepath.Clean(dir)
	if !sandbox {
		return clean
	}

	if rel, err := filepath.Rel(os.TempDir(), clean); err == nil && !strings.HasPrefix(rel, "..") {
		return clean
	}

	base := filepath.Base(clean)
	if base == "." || base == string(os.PathSeparator) {
		base = "default"
	}
	return filepath.Join(os.TempDir(), "glance-dev", base)
}

// DefaultCacheDir is <user cache dir>/glance/captures, falling back to the
// temp dir when the platform has no cache dir.
func DefaultCacheDir() string {
	root, err := os.UserCacheDir()
	if err != nil {
		root = os.TempDir()
	}
	return filepath.Join(root, "glance", "captures")
}
