package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPoolRunsJobs(t *testing.T) {
	p := NewPool(Options{QueueSize: 8, MaxWorkers: 2}, zap.NewNop().Sugar())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(Job{Name: "count", Fn: func(context.Context) error {
			ran.Add(1)
			return nil
		}}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	assert.Equal(t, int32(5), ran.Load())
}

func TestPoolDropsWhenFull(t *testing.T) {
	var dropped atomic.Int32
	p := NewPool(Options{QueueSize: 1, MaxWorkers: 1, OnDrop: func(Job) { dropped.Add(1) }}, zap.NewNop().Sugar())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(Job{Name: "block", Fn: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started

	require.NoError(t, p.Submit(Job{Name: "queued", Fn: func(context.Context) error { return nil }}))
	err := p.Submit(Job{Name: "overflow", Fn: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int32(1), dropped.Load())

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.ErrorIs(t, p.Submit(Job{Name: "late", Fn: func(context.Context) error { return nil }}), ErrStopped)
}

func TestPoolSurvivesPanickingJob(t *testing.T) {
	p := NewPool(Options{QueueSize: 2, MaxWorkers: 1}, zap.NewNop().Sugar())

	var ran atomic.Bool
	require.NoError(t, p.Submit(Job{Name: "panic", Fn: func(context.Context) error { panic("boom") }}))
	require.NoError(t, p.Submit(Job{Name: "after", Fn: func(context.Context) error {
		ran.Store(true)
		return nil
	}}))

	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}
