package fs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/glance/internal/testsupport"
)

func TestCacheWatcher_ReportsRemovals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.jpg")
	testsupport.WriteFile(t, path)

	var mu sync.Mutex
	var removed []string
	w := NewCacheWatcher(dir, func(p string) {
		mu.Lock()
		removed = append(removed, p)
		mu.Unlock()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	require.Eventually(t, w.Active, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range removed {
			if filepath.Clean(p) == path {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, w.Stop(stopCtx))
	require.Eventually(t, func() bool { return !w.Active() }, 2*time.Second, 5*time.Millisecond)
}

func TestCacheWatcher_MissingDirectory(t *testing.T) {
	w := NewCacheWatcher(filepath.Join(t.TempDir(), "missing"), nil, nil)
	err := w.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, w.Active())
}
