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

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) SweepClosedChannels(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestCleanupWorkerRunsAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := &countingSweeper{}

	done, err := StartCleanupWorker(ctx, "@every 1s", sweeper, zap.NewNop())
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return sweeper.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup worker did not stop")
	}
}

func TestCleanupWorkerRejectsBadSchedule(t *testing.T) {
	_, err := StartCleanupWorker(context.Background(), "every now and then", &countingSweeper{}, zap.NewNop())
	assert.Error(t, err)
}
