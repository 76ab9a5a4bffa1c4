package async_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/byzantron-research/aibyz-dataset/async"
	"github.com/byzantron-research/aibyz-dataset/testing/assert"
)

func TestDebounce_CoalescesBursts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan interface{}, 100)
	var handled int64
	go async.Debounce(ctx, 20*time.Millisecond, events, func(_ interface{}) {
		atomic.AddInt64(&handled, 1)
	})
	for i := 0; i < 50; i++ {
		events <- i
	}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&handled), "burst should collapse into one handled event")
}

func TestDebounce_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan interface{}, 1)
	done := make(chan struct{})
	go func() {
		async.Debounce(ctx, time.Hour, events, func(_ interface{}) {})
		close(done)
	}()
	events <- struct{}{}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Debounce did not exit on context cancellation")
	}
}
