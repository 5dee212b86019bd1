// Package listeners reacts to order events: it pushes a summary to the admin
// feed and queues the buyer's email.
package listeners

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/giftkart/app/jobs"
	"github.com/shashiranjanraj/giftkart/app/payment"
	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/event"
	"github.com/shashiranjanraj/giftkart/pkg/logger"
	"github.com/shashiranjanraj/giftkart/pkg/queue"
)

// Publisher receives feed messages. *ws.Hub satisfies it.
type Publisher interface {
	Publish(v any)
}

// FeedMessage is one entry on the admin order feed.
type FeedMessage struct {
	Type          string          `json:"type"`
	OrderID       uint            `json:"orderId"`
	UserID        uint            `json:"userId"`
	Reference     string          `json:"paymentReferenceCode"`
	Brand         string          `json:"brand"`
	Quantity      int             `json:"quantity"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Status        string          `json:"status"`
	PaymentStatus payment.Status  `json:"paymentStatus"`
	Detail        string          `json:"detail,omitempty"`
	At            time.Time       `json:"at"`
}

var mailKinds = map[string]string{
	services.EventOrderPlaced:        jobs.KindPlaced,
	services.EventOrderProofUploaded: jobs.KindProofUploaded,
	services.EventOrderVerified:      jobs.KindVerified,
	services.EventOrderCancelled:     jobs.KindCancelled,
}

// Register subscribes the feed and mail listeners to every order event.
// feed and q may be nil.
func Register(d *event.Dispatcher, feed Publisher, q *queue.Manager) {
	for name, kind := range mailKinds {
		name, kind := name, kind // per-iteration copy (go 1.21 loop semantics)
		d.Listen(name, func(ctx context.Context, payload any) {
			ev, ok := payload.(services.OrderEvent)
			if !ok {
				return
			}
			if feed != nil {
				feed.Publish(feedMessage(name, ev))
			}
			if q == nil {
				return
			}
			job := &jobs.OrderMail{OrderID: ev.Order.ID, Kind: kind, Detail: ev.Detail}
			if err := q.Dispatch(context.WithoutCancel(ctx), job); err != nil {
				logger.WithCtx(ctx).Warn("listeners: queue mail failed", "order_id", ev.Order.ID, "kind", kind, "error", err)
			}
		})
	}
}

func feedMessage(name string, ev services.OrderEvent) FeedMessage {
	o := ev.Order
	return FeedMessage{
		Type:          name,
		OrderID:       o.ID,
		UserID:        o.UserID,
		Reference:     o.PaymentReferenceCode,
		Brand:         o.Brand,
		Quantity:      o.Quantity,
		TotalPrice:    o.TotalPrice,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Detail:        ev.Detail,
		At:            time.Now().UTC(),
	}
}
