// Package mail delivers transactional email. The account service only
// sends one kind today: the password recovery message.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/tidehaven/accountd/pkg/slogx"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer is the delivery sink. Implementations must not log message
// bodies; reset emails contain live tokens.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	if err := smtp.SendMail(addr, auth, m.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("mail: send to %s: %w", msg.To, err)
	}

	slogx.FromContext(ctx).Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// LogMailer is the dev-mode sink used when email delivery is disabled. It
// records that a message would have been sent, nothing more.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	slogx.FromContext(ctx).Info("email suppressed (EMAILS_ENABLED=false)",
		"to", msg.To, "subject", msg.Subject)
	return nil
}
