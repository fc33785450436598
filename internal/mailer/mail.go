package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/noahxzhu/contract-reminder/internal/errs"
)

const (
	ProviderLog      = "log"
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
)

// Mailer delivers a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
}

type MessageOption func(*Message)

func NewMessage(from string, to []string, opts ...MessageOption) Message {
	m := Message{
		From: from,
		To:   to,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func WithSubject(sub string) MessageOption {
	return func(m *Message) {
		m.Subject = sub
	}
}

func WithText(text string) MessageOption {
	return func(m *Message) {
		m.Text = text
	}
}

// checkHeaders rejects header values that would split into extra header lines.
func (m Message) checkHeaders() error {
	values := append([]string{m.From, m.Subject}, m.To...)
	for _, v := range values {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%w: %q", errs.ErrInvalidHeader, v)
		}
	}
	return nil
}
