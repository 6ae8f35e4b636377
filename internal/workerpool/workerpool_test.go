package workerpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"
)

func TestRunProcessesAllQueuedTasks(t *testing.T) {
	pool := New(2, 10)
	var processed atomic.Int64

	tmb := &tomb.Tomb{}
	tmb.Go(func() error {
		pool.Run(tmb, func(_ *tomb.Tomb, task any) error {
			processed.Add(task.(int64))
			return nil
		})
		return nil
	})

	const n = 20
	var want int64
	for i := int64(1); i <= n; i++ {
		pool.AddTask(i)
		want += i
	}

	require.Eventually(t, func() bool {
		return processed.Load() == want
	}, time.Second, time.Millisecond)

	tmb.Kill(nil)
	_ = tmb.Wait()
}

func TestRunBoundsConcurrency(t *testing.T) {
	const size = 3
	pool := New(size, 20)

	var inFlight, maxInFlight atomic.Int64
	tmb := &tomb.Tomb{}
	tmb.Go(func() error {
		pool.Run(tmb, func(_ *tomb.Tomb, task any) error {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		})
		return nil
	})

	for i := 0; i < 20; i++ {
		pool.AddTask(i)
	}

	require.Eventually(t, func() bool {
		return maxInFlight.Load() > 0 && inFlight.Load() == 0
	}, 2*time.Second, 5*time.Millisecond)

	assert.LessOrEqual(t, maxInFlight.Load(), int64(size))

	tmb.Kill(nil)
	_ = tmb.Wait()
}

func TestRunStopsOnTombDeath(t *testing.T) {
	pool := New(1, 10)
	tmb := &tomb.Tomb{}
	done := make(chan struct{})
	tmb.Go(func() error {
		pool.Run(tmb, func(_ *tomb.Tomb, _ any) error { return nil })
		close(done)
		return nil
	})

	tmb.Kill(nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after tomb death")
	}
}
