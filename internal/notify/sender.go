// Package notify composes and delivers customer email: booking
// confirmations, tip requests, membership welcomes and newsletter
// broadcasts.
package notify

import (
	"context"
	"errors"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Message is one outgoing email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// ResendSender sends mail through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return errors.New("message has no recipients")
	}
	req := &resend.SendEmailRequest{
		From:    s.from,
		To:      m.To,
		Subject: m.Subject,
		Html:    m.HTML,
		ReplyTo: m.ReplyTo,
	}
	_, err := s.client.Emails.SendWithContext(ctx, req)
	return err
}

// LogSender only logs messages.  It is used when no API key is configured.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, m Message) error {
	s.Log.Info("email (not sent, no provider configured)",
		zap.Strings("to", m.To), zap.String("subject", m.Subject), zap.Int("html_bytes", len(m.HTML)))
	return nil
}

// NewSender picks the Resend sender when apiKey is set.
func NewSender(apiKey, from string, log *zap.Logger) Sender {
	if apiKey == "" {
		return LogSender{Log: log}
	}
	return NewResendSender(apiKey, from)
}
