package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridMailer struct {
	FromName string
	Timeout  time.Duration
	Client   *sendgrid.Client
}

func NewSendGridMailer(apiKey, fromName string, timeout time.Duration) *SendGridMailer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SendGridMailer{
		FromName: fromName,
		Timeout:  timeout,
		Client:   sendgrid.NewSendClient(apiKey),
	}
}

func (s *SendGridMailer) Send(ctx context.Context, msg Message) error {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(s.FromName, msg.From))
	message.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(mail.NewEmail("", to))
	}
	message.AddPersonalizations(p)
	message.AddContent(mail.NewContent("text/plain", msg.Text))

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resp, err := s.Client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid API error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}
