package event_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/giftkart/pkg/event"
)

func TestFireRunsListenersInOrder(t *testing.T) {
	d := event.New()
	var got []string
	d.Listen("order.placed", func(_ context.Context, p any) { got = append(got, "a:"+p.(string)) })
	d.Listen("order.placed", func(_ context.Context, p any) { got = append(got, "b:"+p.(string)) })
	d.Listen("order.cancelled", func(context.Context, any) { got = append(got, "wrong") })

	d.Fire(context.Background(), "order.placed", "ORD-1")
	assert.Equal(t, []string{"a:ORD-1", "b:ORD-1"}, got)
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	d := event.New()
	var n atomic.Int32
	d.Listen("order.verified", func(context.Context, any) { panic("boom") })
	d.Listen("order.verified", func(context.Context, any) { n.Add(1) })

	d.Fire(context.Background(), "order.verified", nil)
	d.FireAsync(context.Background(), "order.verified", nil)
	d.Wait()
	assert.Equal(t, int32(2), n.Load())
}

func TestAsyncOutlivesCancelledContext(t *testing.T) {
	d := event.New()
	var alive atomic.Bool
	d.Listen("order.placed", func(ctx context.Context, _ any) { alive.Store(ctx.Err() == nil) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.FireAsync(ctx, "order.placed", nil)
	d.Wait()
	assert.True(t, alive.Load())
}

func TestNilDispatcher(t *testing.T) {
	var d *event.Dispatcher
	assert.NotPanics(t, func() { d.Fire(context.Background(), "x", nil) })
}
