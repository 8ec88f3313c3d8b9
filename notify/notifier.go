// Package notify delivers best-effort messages to tenants.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Notifier sends a plain-text message to an address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogNotifier only logs messages. Used when SMTP is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that writes messages to the log.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message.
func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.logger.Info("notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}

// SMTPConfig SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// PerSecond caps outgoing messages.
	PerSecond float64
}

// SMTPNotifier sends mail through an SMTP relay.
type SMTPNotifier struct {
	cfg     SMTPConfig
	limiter *rate.Limiter
	logger  *zap.Logger
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates an SMTP notifier.
func NewSMTPNotifier(cfg SMTPConfig, logger *zap.Logger) *SMTPNotifier {
	perSecond := cfg.PerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	return &SMTPNotifier{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:  logger,
		send:    smtp.SendMail,
	}
}

// Send delivers the message, waiting for the rate limiter first.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	if err := n.send(addr, auth, n.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	n.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// Recorder keeps every message in memory. Used by tests and dry runs.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
	Err      error
}

// Message a recorded notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Send records the message and returns r.Err.
func (r *Recorder) Send(ctx context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{To: to, Subject: subject, Body: body})
	return r.Err
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.Messages))
	copy(out, r.Messages)
	return out
}
