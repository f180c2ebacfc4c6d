package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingExpirer struct {
	calls atomic.Int32
}

func (c *countingExpirer) ExpireIdle(context.Context, time.Time) int {
	c.calls.Add(1)
	return 2
}

func TestSweepReturnsAbandonedCount(t *testing.T) {
	exp := &countingExpirer{}
	w := NewIdleSessionWorker(exp, time.Minute)

	assert.Equal(t, 2, w.sweep(context.Background()))
	assert.Equal(t, int32(1), exp.calls.Load())
}

func TestStartTicksUntilCancelled(t *testing.T) {
	exp := &countingExpirer{}
	w := NewIdleSessionWorker(exp, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return exp.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
