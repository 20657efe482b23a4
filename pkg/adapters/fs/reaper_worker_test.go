package fs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/glance/internal/testsupport"
)

func TestReaperWorker_SweepsPeriodically(t *testing.T) {
	dir := t.TempDir()
	reaper, err := NewReaper(ReaperConfig{Dir: dir})
	require.NoError(t, err)

	w := NewReaperWorker(reaper, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, "shot.jpg")
		testsupport.WriteFile(t, path)
		require.Eventually(t, func() bool {
			_, err := os.Stat(path)
			return os.IsNotExist(err)
		}, 2*time.Second, 5*time.Millisecond, "sweep %d never removed the file", i)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, w.Stop(stopCtx))

	sweeps := reaper.Sweeps()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, sweeps, reaper.Sweeps(), "no sweep may run after Stop")

	state := w.State()
	assert.Equal(t, dir, state.Metadata["dir"])
}

func TestReaperWorker_RejectsDoubleStart(t *testing.T) {
	reaper, err := NewReaper(ReaperConfig{Dir: t.TempDir()})
	require.NoError(t, err)

	w := NewReaperWorker(reaper, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	assert.Error(t, w.Start(ctx))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, w.Stop(stopCtx))
}

func TestReaperWorker_UnderSupervisor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	reaper, err := NewReaper(ReaperConfig{Dir: dir})
	require.NoError(t, err)

	var mu sync.Mutex
	var created []*ReaperWorker
	child := supervisor.Spec{
		Name: "cache-reaper",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			w := NewReaperWorker(reaper, 10*time.Millisecond)
			mu.Lock()
			created = append(created, w)
			mu.Unlock()
			return w, nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      1,
			ResetDuration:   50 * time.Millisecond,
			MaxRestarts:     2,
			MaxDuration:     200 * time.Millisecond,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("test-reaper", supervisor.StrategyOneForOne, child)
	require.NoError(t, sup.Start(ctx))

	path := filepath.Join(dir, "shot.jpg")
	testsupport.WriteFile(t, path)
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 2*time.Second, 5*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, sup.Stop(stopCtx))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, created, 1, "a healthy reaper must not be restarted")
}
