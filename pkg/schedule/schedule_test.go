package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartRunsImmediatelyAndOnInterval(t *testing.T) {
	s := New()
	s.tick = 5 * time.Millisecond

	var n atomic.Int32
	s.Every(20 * time.Millisecond).Name("count").Run(func(context.Context) error {
		n.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestWithoutOverlapping(t *testing.T) {
	s := New()
	release := make(chan struct{})
	var runs atomic.Int32
	s.Every(time.Nanosecond).WithoutOverlapping().Run(func(context.Context) error {
		runs.Add(1)
		<-release
		return nil
	})

	ctx := context.Background()
	s.dispatchDue(ctx, time.Now())
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	s.dispatchDue(ctx, time.Now().Add(time.Second))
	close(release)
	s.wg.Wait()
	assert.Equal(t, int32(1), runs.Load())
}

func TestRunNowJoinsFailures(t *testing.T) {
	s := New()
	s.Every(time.Minute).Name("ok").Run(func(context.Context) error { return nil })
	s.Every(time.Minute).Name("bad").Run(func(context.Context) error { return errors.New("db down") })

	err := s.RunNow(context.Background())
	assert.ErrorContains(t, err, "bad: db down")
	assert.Equal(t, []string{"bad  [every 1m0s]", "ok  [every 1m0s]"}, s.List())
}

func TestPanickingTaskIsRecovered(t *testing.T) {
	s := New()
	s.Every(time.Minute).Run(func(context.Context) error { panic("boom") })

	s.dispatchDue(context.Background(), time.Now())
	s.wg.Wait()
	assert.False(t, s.entries[0].running)
}
