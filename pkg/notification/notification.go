// Package notification fans a notification out to its channels.
//
//	type PaymentVerified struct{ Order models.Order }
//	func (n PaymentVerified) Via() []string { return []string{notification.ChannelMail} }
//	func (n PaymentVerified) ToMail() notification.MailData { ... }
//
//	err := notifier.Send(ctx, "buyer@example.com", PaymentVerified{Order: o})
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	httpc "github.com/shashiranjanraj/giftkart/pkg/http"
	"github.com/shashiranjanraj/giftkart/pkg/mail"
)

const (
	ChannelMail    = "mail"
	ChannelWebhook = "webhook"
)

// MailData carries the data needed to send an email notification.
type MailData struct {
	To      string // overrides the notifiable address if set
	Subject string
	HTML    string
	Text    string
}

// WebhookData carries a JSON payload for the operations webhook.
// Slack and Discord incoming webhooks accept {"text": "..."}.
type WebhookData struct {
	URL     string // overrides the notifier default if set
	Payload any
}

// Notification is the interface every notification must satisfy.
type Notification interface {
	Via() []string
}

// Mailable supports the mail channel.
type Mailable interface {
	ToMail() MailData
}

// Webhookable supports the webhook channel.
type Webhookable interface {
	ToWebhook() WebhookData
}

// Notifier owns the channel transports.
type Notifier struct {
	mailer     mail.Mailer
	webhookURL string
}

// New returns a notifier. An empty webhookURL disables the webhook channel
// unless a notification carries its own URL.
func New(m mail.Mailer, webhookURL string) *Notifier {
	return &Notifier{
		mailer:     m,
		webhookURL: webhookURL,
	}
}

// Send dispatches n through every channel it names. Channel errors are
// joined; one failing channel does not stop the others.
func (s *Notifier) Send(ctx context.Context, address string, n Notification) error {
	var errs []error
	for _, channel := range n.Via() {
		if err := s.dispatch(ctx, address, channel, n); err != nil {
			errs = append(errs, fmt.Errorf("notification: %s: %w", channel, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Notifier) dispatch(ctx context.Context, address, channel string, n Notification) error {
	switch channel {
	case ChannelMail:
		m, ok := n.(Mailable)
		if !ok {
			return fmt.Errorf("%T does not implement Mailable", n)
		}
		return s.sendMail(ctx, address, m.ToMail())

	case ChannelWebhook:
		wh, ok := n.(Webhookable)
		if !ok {
			return fmt.Errorf("%T does not implement Webhookable", n)
		}
		return s.sendWebhook(ctx, wh.ToWebhook())

	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
}

func (s *Notifier) sendMail(ctx context.Context, address string, d MailData) error {
	to := d.To
	if to == "" {
		to = address
	}
	if to == "" {
		return errors.New("no recipient")
	}
	return s.mailer.Send(ctx, mail.Message{To: []string{to}, Subject: d.Subject, HTML: d.HTML, Text: d.Text})
}

func (s *Notifier) sendWebhook(ctx context.Context, d WebhookData) error {
	url := d.URL
	if url == "" {
		url = s.webhookURL
	}
	if url == "" {
		return nil
	}

	resp, err := httpc.Post(url).
		WithContext(ctx).
		Body(d.Payload).
		Timeout(10 * time.Second).
		Retry(2, 500*time.Millisecond).
		Send()
	if err != nil {
		return err
	}
	return resp.Throw()
}
