package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mailgun/mailgun-go/v4"
)

// Notifier is the outbound notification channel for qualified leads.
// Delivery is best-effort: callers log failures and never retry within a turn.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

type mailgunClient struct {
	mg     *mailgun.MailgunImpl
	sender string
}

// NewMailgun creates a Notifier backed by the Mailgun messages API.
func NewMailgun(domain, apiKey, sender string) Notifier {
	return &mailgunClient{
		mg:     mailgun.NewMailgun(domain, apiKey),
		sender: sender,
	}
}

func (c *mailgunClient) Send(ctx context.Context, recipient, subject, body string) error {
	msg := c.mg.NewMessage(c.sender, subject, body, recipient)

	if _, _, err := c.mg.Send(ctx, msg); err != nil {
		return goerr.Wrap(err, "failed to send notification",
			goerr.V("recipient", recipient),
			goerr.V("subject", subject))
	}

	return nil
}
