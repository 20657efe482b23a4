package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/glance/pkg/core"
)

// FileCamera is a capture provider that "takes a photo" by copying an
// existing image into the cache directory under a fresh name.
// Sources are used round-robin.
type FileCamera struct {
	Dir     string
	Sources []string

	mu   sync.Mutex
	next int
}

// NewFileCamera returns a FileCamera writing into dir.
func NewFileCamera(dir string, sources ...string) *FileCamera {
	return &FileCamera{Dir: dir, Sources: sources}
}

// Capture copies the next source image into Dir.
func (c *FileCamera) Capture(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	if len(c.Sources) == 0 {
		c.mu.Unlock()
		return "", fmt.Errorf("no source images configured")
	}
	source := c.Sources[c.next%len(c.Sources)]
	c.next++
	c.mu.Unlock()

	src, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("failed to open source image: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(source))
	if ext == "" {
		ext = ".jpg"
	}
	target := filepath.Join(c.Dir, uuid.NewString()+ext)
	if err := writeAtomic(target, src, 0644); err != nil {
		return "", err
	}
	return target, nil
}

var _ core.CaptureProvider = (*FileCamera)(nil)
