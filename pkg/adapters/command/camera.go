package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/aretw0/glance/pkg/core"
)

// Camera captures by running a grabber (e.g. `fswebcam --no-banner {path}`)
// that writes the photo to a fresh path inside Dir.
type Camera struct {
	Runner Runner
	Dir    string
	Ext    string // defaults to ".jpg"
}

func (c Camera) Capture(ctx context.Context) (string, error) {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	ext := c.Ext
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(c.Dir, uuid.NewString()+ext)

	if _, err := c.Runner.Run(ctx, path); err != nil {
		// A grabber may leave a partial file behind on failure.
		_ = os.Remove(path)
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("capture command produced no file: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(path)
		return "", fmt.Errorf("capture command produced an empty file")
	}
	return path, nil
}

var _ core.CaptureProvider = Camera{}
