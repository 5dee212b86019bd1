package listeners_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/giftkart/app/listeners"
	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/app/payment"
	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/event"
	"github.com/shashiranjanraj/giftkart/pkg/queue"
)

type feed struct {
	mu   sync.Mutex
	msgs []listeners.FeedMessage
}

func (f *feed) Publish(v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, v.(listeners.FeedMessage))
}

func TestOrderEventsReachFeedAndQueue(t *testing.T) {
	d := event.New()
	f := &feed{}
	driver := queue.NewMemoryDriver()
	listeners.Register(d, f, queue.New(driver))

	order := models.Order{ID: 7, UserID: 3, Brand: "Amazon", Quantity: 2, PaymentReferenceCode: "ORD-20260101000000-1234", PaymentStatus: payment.StatusCancelled}
	d.Fire(context.Background(), services.EventOrderCancelled, services.OrderEvent{Order: order, Detail: services.CauseExpired})

	require.Len(t, f.msgs, 1)
	assert.Equal(t, services.EventOrderCancelled, f.msgs[0].Type)
	assert.Equal(t, uint(7), f.msgs[0].OrderID)
	assert.Equal(t, "expired", f.msgs[0].Detail)

	require.Equal(t, 1, driver.Len())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	raw, err := driver.Pop(ctx)
	require.NoError(t, err)

	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "mail.order", env.Type)
	assert.JSONEq(t, `{"orderId":7,"kind":"cancelled","detail":"expired"}`, string(env.Payload))
}

func TestForeignPayloadsAreIgnored(t *testing.T) {
	d := event.New()
	f := &feed{}
	listeners.Register(d, f, nil)

	d.Fire(context.Background(), services.EventOrderPlaced, "not an order")
	assert.Empty(t, f.msgs)
}
