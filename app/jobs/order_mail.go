// Package jobs holds the queued background jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/app/payment"
	"github.com/shashiranjanraj/giftkart/app/repositories"
	"github.com/shashiranjanraj/giftkart/pkg/logger"
	"github.com/shashiranjanraj/giftkart/pkg/mail"
	"github.com/shashiranjanraj/giftkart/pkg/notification"
	"github.com/shashiranjanraj/giftkart/pkg/queue"
)

const OrderMailName = "mail.order"

// Mail kinds, one template each.
const (
	KindPlaced        = "placed"
	KindProofUploaded = "proof_uploaded"
	KindVerified      = "verified"
	KindCancelled     = "cancelled"
)

var templates = template.Must(template.New("order").Parse(`
{{define "placed"}}<p>Hi {{.Name}},</p>
<p>Thanks for your order of {{.Order.Quantity}} × {{.Order.Brand}} ({{.Total}}).</p>
<p>Your payment reference is <strong>{{.Order.PaymentReferenceCode}}</strong>.</p>
<pre>{{.Instructions}}</pre>
<p>Please pay before {{.Due}} or the order will be cancelled.</p>{{end}}
{{define "proof_uploaded"}}<p>Hi {{.Name}},</p>
<p>We received your payment proof for order {{.Order.PaymentReferenceCode}}. We will confirm it shortly.</p>{{end}}
{{define "verified"}}<p>Hi {{.Name}},</p>
{{if eq .Detail "approved"}}<p>Your payment for order {{.Order.PaymentReferenceCode}} is confirmed. Enjoy your {{.Order.Brand}} gift card!</p>
{{else}}<p>We could not confirm your payment for order {{.Order.PaymentReferenceCode}}.{{with .Order.VerificationNote}} Note: {{.}}{{end}}</p>
<p>Please upload a new proof before {{.Due}}.</p>{{end}}{{end}}
{{define "cancelled"}}<p>Hi {{.Name}},</p>
<p>Order {{.Order.PaymentReferenceCode}} was cancelled{{if eq .Detail "expired"}} because payment was not received in time{{end}}.</p>{{end}}
`))

var subjects = map[string]string{
	KindPlaced:        "Your order %s: payment instructions",
	KindProofUploaded: "Payment proof received for %s",
	KindVerified:      "Payment update for %s",
	KindCancelled:     "Order %s cancelled",
}

// OrderMail emails the buyer about a change to their order.
type OrderMail struct {
	OrderID uint   `json:"orderId"`
	Kind    string `json:"kind"`
	Detail  string `json:"detail,omitempty"`

	orders   *repositories.OrderRepository
	notifier *notification.Notifier
	settings payment.Settings
}

func (OrderMail) JobName() string { return OrderMailName }

func (j *OrderMail) Handle(ctx context.Context) error {
	if _, ok := subjects[j.Kind]; !ok {
		return fmt.Errorf("jobs: unknown order mail kind %q", j.Kind)
	}
	o, err := j.orders.FindByID(ctx, j.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.WithCtx(ctx).Info("jobs: order gone, mail skipped", "order_id", j.OrderID)
		return nil
	}
	if err != nil {
		return err
	}
	if o.User == nil || o.User.Email == "" {
		return nil
	}

	html, err := mail.Render(templates, j.Kind, j.data(o))
	if err != nil {
		return err
	}
	return j.notifier.Send(ctx, o.User.Email, orderNotice{
		kind:    j.Kind,
		subject: fmt.Sprintf(subjects[j.Kind], o.PaymentReferenceCode),
		html:    html,
		order:   o,
	})
}

type mailData struct {
	Name         string
	Order        models.Order
	Total        string
	Instructions string
	Due          string
	Detail       string
}

func (j *OrderMail) data(o models.Order) mailData {
	d := mailData{
		Name:         o.User.Name,
		Order:        o,
		Total:        o.TotalPrice.StringFixed(2),
		Instructions: j.settings.Instructions(o.PaymentMethod, o.PaymentReferenceCode, o.TotalPrice),
		Detail:       j.Detail,
	}
	if o.PaymentDueDate != nil {
		d.Due = o.PaymentDueDate.Format("2 Jan 2006 15:04 MST")
	}
	return d
}

// orderNotice goes to the buyer by mail. Proof uploads also ping the
// operations webhook so an admin can review.
type orderNotice struct {
	kind    string
	subject string
	html    string
	order   models.Order
}

func (n orderNotice) Via() []string {
	if n.kind == KindProofUploaded {
		return []string{notification.ChannelMail, notification.ChannelWebhook}
	}
	return []string{notification.ChannelMail}
}

func (n orderNotice) ToMail() notification.MailData {
	return notification.MailData{Subject: n.subject, HTML: n.html}
}

func (n orderNotice) ToWebhook() notification.WebhookData {
	return notification.WebhookData{Payload: map[string]string{
		"text": fmt.Sprintf("Payment proof uploaded for order %s (%s %s), awaiting review.",
			n.order.PaymentReferenceCode, n.order.TotalPrice.StringFixed(2), n.order.Brand),
	}}
}

// Register makes the job known to q with its dependencies bound.
func Register(q *queue.Manager, orders *repositories.OrderRepository, notifier *notification.Notifier, settings payment.Settings) {
	q.Register(OrderMailName, func() queue.Job {
		return &OrderMail{orders: orders, notifier: notifier, settings: settings}
	})
}
