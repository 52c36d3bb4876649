package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"storefront/internal/domain"
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message through a tenant's mail configuration.
type Sender interface {
	Send(ctx context.Context, cfg domain.MailConfig, msg Message) error
}

// SMTPMailer sends through the tenant's own SMTP account with bounded
// retry on transient failures.
type SMTPMailer struct {
	maxRetries uint64
}

func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{maxRetries: 3}
}

func (m *SMTPMailer) Send(ctx context.Context, cfg domain.MailConfig, msg Message) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}

	payload := buildMessage(from, msg)

	operation := func() error {
		return smtp.SendMail(addr, auth, from, []string{msg.To}, payload)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), m.maxRetries), ctx)
	return backoff.Retry(operation, policy)
}

func buildMessage(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
