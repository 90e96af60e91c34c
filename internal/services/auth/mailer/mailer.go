// Package mailer delivers account emails.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them. It is the
// default when no SMTP host is configured.
type LogMailer struct {
	Logger *zap.Logger
}

// Send implements Mailer.
func (m LogMailer) Send(_ context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("email not sent, no SMTP host configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// SMTPConfig configures SMTPMailer.
type SMTPConfig struct {
	Addr     string `env:"BARANEX_SMTP_ADDR"`
	Username string `env:"BARANEX_SMTP_USERNAME"`
	Password string `env:"BARANEX_SMTP_PASSWORD"`
	From     string `env:"BARANEX_SMTP_FROM" envDefault:"no-reply@baranex.local"`
}

// SMTPMailer sends through a plain SMTP relay with optional PLAIN auth.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer builds an SMTP mailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("smtp addr is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}, nil
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.To+msg.Subject, "\r\n") {
		return fmt.Errorf("header values must not contain newlines")
	}
	var auth smtp.Auth
	if m.cfg.Username != "" {
		host, _, err := net.SplitHostPort(m.cfg.Addr)
		if err != nil {
			return fmt.Errorf("parse smtp addr: %w", err)
		}
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)
	}
	if err := m.send(m.cfg.Addr, auth, m.cfg.From, []string{msg.To}, Compose(m.cfg.From, msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Compose renders msg as an RFC 5322 text message.
func Compose(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
