package admin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/skilldex/internal/config"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLifecycle struct {
	mu    sync.Mutex
	calls []service.ReindexOptions
}

func (l *recordingLifecycle) Ensure(_ context.Context, opts service.ReindexOptions) (*service.EnsureResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, opts)
	return &service.EnsureResult{}, nil
}

func (l *recordingLifecycle) recorded() []service.ReindexOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]service.ReindexOptions(nil), l.calls...)
}

func TestStartBackgroundReindex_ScheduleForcesRebuild(t *testing.T) {
	lifecycle := &recordingLifecycle{}
	cfg := &config.Config{ReindexSchedule: "@every 1s"}

	b, err := startBackgroundReindex(context.Background(), cfg, lifecycle, nil)
	require.NoError(t, err)
	defer b.stop()

	require.Eventually(t, func() bool { return len(lifecycle.recorded()) > 0 }, 3*time.Second, 50*time.Millisecond)
	assert.True(t, lifecycle.recorded()[0].Force)
}

func TestStartBackgroundReindex_IntervalChecksStaleness(t *testing.T) {
	lifecycle := &recordingLifecycle{}
	cfg := &config.Config{ReindexInterval: 20 * time.Millisecond}

	b, err := startBackgroundReindex(context.Background(), cfg, lifecycle, nil)
	require.NoError(t, err)
	defer b.stop()

	require.Eventually(t, func() bool { return len(lifecycle.recorded()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, lifecycle.recorded()[0].Force)
}

func TestStartBackgroundReindex_InvalidSchedule(t *testing.T) {
	_, err := startBackgroundReindex(context.Background(), &config.Config{ReindexSchedule: "nope"}, &recordingLifecycle{}, nil)
	assert.ErrorContains(t, err, "invalid schedule")
}

func TestStartBackgroundReindex_WatchNeedsDirLister(t *testing.T) {
	b, err := startBackgroundReindex(context.Background(), &config.Config{Watch: true}, &recordingLifecycle{}, struct{}{})
	require.NoError(t, err)
	assert.Empty(t, b.stops)
}
