// Package notifier turns order events into customer emails.
package notifier

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type sgClient interface {
	SendWithContext(ctx context.Context, msg *mail.SGMailV3) (*rest.Response, error)
}

type SendGridMailer struct {
	client sgClient
	from   *mail.Email
}

func NewSendGridMailer(apiKey, sender string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Storefront", sender),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, to, subject, html string) error {
	msg := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", to), "", html)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}
