package fs

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/glance/internal/testsupport"
	"github.com/aretw0/glance/pkg/core"
)

func seedCache(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		testsupport.WriteFile(t, filepath.Join(dir, name))
	}
	return dir
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestReaper_SweepDeletesEverything(t *testing.T) {
	dir := seedCache(t, "a.jpg", "b.jpg", "notes.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested", "deeper"), 0755))
	testsupport.WriteFile(t, filepath.Join(dir, "nested", "deeper", "c.jpg"))

	reaper, err := NewReaper(ReaperConfig{Dir: dir})
	require.NoError(t, err)

	report, err := reaper.Sweep(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Deleted)
	assert.Zero(t, report.Failed)
	assert.Empty(t, listNames(t, dir))
	assert.Equal(t, 1, reaper.Sweeps())
}

func TestReaper_SweepMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")
	reaper, err := NewReaper(ReaperConfig{Dir: dir})
	require.NoError(t, err)

	report, err := reaper.Sweep(context.Background(), dir)
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)
}

func TestReaper_ToleratesFilesRemovedMidSweep(t *testing.T) {
	dir := seedCache(t, "a.jpg", "b.jpg", "c.jpg", "d.jpg")

	// The first removal also deletes another entry behind the reaper's back,
	// the way a concurrent coordinator cleanup would.
	var once sync.Once
	remover := core.RemoverFunc(func(ctx context.Context, path string) error {
		once.Do(func() {
			for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"} {
				other := filepath.Join(dir, name)
				if other != path {
					require.NoError(t, os.Remove(other))
					return
				}
			}
		})
		return Remover{}.Remove(ctx, path)
	})

	reaper, err := NewReaper(ReaperConfig{Dir: dir, Remover: remover})
	require.NoError(t, err)

	report, err := reaper.Sweep(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Deleted)
	assert.Equal(t, 1, report.Missing)
	assert.Zero(t, report.Failed)
	assert.Empty(t, listNames(t, dir))
}

func TestReaper_FailureDoesNotAbortSweep(t *testing.T) {
	dir := seedCache(t, "a.jpg", "b.jpg", "c.jpg")
	stuck := filepath.Join(dir, "b.jpg")

	remover := core.RemoverFunc(func(ctx context.Context, path string) error {
		if path == stuck {
			return errors.New("permission denied")
		}
		return Remover{}.Remove(ctx, path)
	})

	reaper, err := NewReaper(ReaperConfig{Dir: dir, Remover: remover})
	require.NoError(t, err)

	report, err := reaper.Sweep(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, []string{"b.jpg"}, listNames(t, dir))

	state, ok := reaper.State().(ReaperState)
	require.True(t, ok)
	assert.Equal(t, 1, state.LastReport.Failed)
	assert.NotNil(t, state.LastSweep)
}

func TestReaper_Pattern(t *testing.T) {
	dir := seedCache(t, "a.jpg", "b.png", "keep.txt")

	reaper, err := NewReaper(ReaperConfig{Dir: dir, Pattern: "*.{jpg,png}"})
	require.NoError(t, err)

	report, err := reaper.Sweep(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, []string{"keep.txt"}, listNames(t, dir))

	_, err = NewReaper(ReaperConfig{Dir: dir, Pattern: "[unclosed"})
	assert.Error(t, err)
}

func TestReaper_ProtectInUse(t *testing.T) {
	dir := seedCache(t, "shown.jpg", "old.jpg")
	shown := filepath.Join(dir, "shown.jpg")

	reaper, err := NewReaper(ReaperConfig{
		Dir:   dir,
		InUse: func(path string) bool { return path == shown },
	})
	require.NoError(t, err)

	report, err := reaper.Sweep(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{"shown.jpg"}, listNames(t, dir))
}

func TestReaper_SkipsStagedCaptures(t *testing.T) {
	staged := TempFilePrefix + "123456"
	dir := seedCache(t, staged, "old.jpg")

	reaper, err := NewReaper(ReaperConfig{Dir: dir})
	require.NoError(t, err)

	report, err := reaper.Sweep(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{staged}, listNames(t, dir))
}

func TestReaper_CanceledContext(t *testing.T) {
	dir := seedCache(t, "a.jpg")
	reaper, err := NewReaper(ReaperConfig{Dir: dir})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = reaper.Sweep(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a.jpg"}, listNames(t, dir))
}

func TestRemover_NotFoundIsDistinguishable(t *testing.T) {
	dir := seedCache(t, "a.jpg")
	path := filepath.Join(dir, "a.jpg")

	require.NoError(t, Remover{}.Remove(context.Background(), path))
	err := Remover{}.Remove(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, iofs.ErrNotExist)
}
