// Package event is an in-process publish/subscribe dispatcher for domain
// events such as "order.placed".
package event

import (
	"context"
	"sync"

	"github.com/shashiranjanraj/giftkart/pkg/logger"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any)

// Dispatcher routes named events to their listeners.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
}

func New() *Dispatcher {
	return &Dispatcher{handlers: map[string][]Handler{}}
}

// Listen registers a handler for the given event name.
func (d *Dispatcher) Listen(event string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[event] = append(d.handlers[event], h)
}

func (d *Dispatcher) snapshot(event string) []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	hs := make([]Handler, len(d.handlers[event]))
	copy(hs, d.handlers[event])
	return hs
}

// Fire runs every listener synchronously. A panicking listener is logged
// and does not stop the others. A nil dispatcher drops the event.
func (d *Dispatcher) Fire(ctx context.Context, event string, payload any) {
	if d == nil {
		return
	}
	for _, h := range d.snapshot(event) {
		d.call(ctx, event, h, payload)
	}
}

// FireAsync runs every listener in its own goroutine. The request context
// is detached so listeners outlive the request. Wait blocks until they
// finish.
func (d *Dispatcher) FireAsync(ctx context.Context, event string, payload any) {
	if d == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, h := range d.snapshot(event) {
		h := h // per-iteration copy (go 1.21 loop semantics)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.call(ctx, event, h, payload)
		}()
	}
}

// Wait blocks until every FireAsync listener has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) call(ctx context.Context, event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "event", event, "panic", r)
		}
	}()
	h(ctx, payload)
}
