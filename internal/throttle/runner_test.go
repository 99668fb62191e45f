package throttle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunBoundsConcurrency(t *testing.T) {
	runner := NewRunner(3, 0)

	var inFlight, peak atomic.Int32
	errs := runner.Run(context.Background(), 12, func(ctx context.Context, i int) error {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	assert.Len(t, errs, 12)
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestRunKeepsErrorsPerTask(t *testing.T) {
	runner := NewRunner(2, 0)
	boom := errors.New("boom")

	errs := runner.Run(context.Background(), 5, func(ctx context.Context, i int) error {
		if i == 3 {
			return boom
		}
		return nil
	})

	for i, err := range errs {
		if i == 3 {
			assert.ErrorIs(t, err, boom)
			continue
		}
		assert.NoError(t, err, "task %d", i)
	}
}

func TestRunPacesTaskStarts(t *testing.T) {
	// 2 per 100ms with a burst of 2: tasks 3..6 wait 50ms each
	runner := NewRunner(2, 100*time.Millisecond)

	start := time.Now()
	errs := runner.Run(context.Background(), 6, func(ctx context.Context, i int) error { return nil })
	elapsed := time.Since(start)

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.GreaterOrEqual(t, elapsed, 180*time.Millisecond)
}

func TestRunStopsStartingOnCancel(t *testing.T) {
	runner := NewRunner(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int32
	errs := runner.Run(ctx, 4, func(ctx context.Context, i int) error {
		started.Add(1)
		cancel()
		return nil
	})

	assert.Equal(t, int32(1), started.Load())
	assert.NoError(t, errs[0])
	for _, err := range errs[1:] {
		assert.Error(t, err)
	}
}
