// Package fs implements the filesystem side of a capture session: unlinking
// artifacts, sweeping the cache directory, watching it for removals, and a
// file-backed capture provider.
package fs

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/glance/pkg/core"
)

// Remover implements core.Remover with os.Remove.
// Directories are removed recursively. A missing path yields an error
// wrapping fs.ErrNotExist.
type Remover struct{}

// Remove deletes path.
func (Remover) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

var _ core.Remover = Remover{}
