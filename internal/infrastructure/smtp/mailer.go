// Package smtp delivers verification mail over plain SMTP.
package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/event-snap/internal/config"
)

const dialTimeout = 10 * time.Second

// Mailer sends a single plain-text email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type mailer struct {
	addr     string
	host     string
	from     string
	username string
	password string
}

// NewMailer returns an SMTP mailer, or a mailer that only logs the message
// when no SMTP host is configured (local development).
func NewMailer(cfg *config.Config, log *slog.Logger) Mailer {
	if cfg.SMTPHost == "" {
		if log == nil {
			log = slog.Default()
		}
		return &logMailer{log: log}
	}
	return &mailer{
		addr:     net.JoinHostPort(cfg.SMTPHost, cfg.SMTPPort),
		host:     cfg.SMTPHost,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendEmail(ctx context.Context, to, subject, body string) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", m.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(nil); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if m.username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(message(m.from, to, subject, body)); err != nil {
		wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func message(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

type logMailer struct{ log *slog.Logger }

func (m *logMailer) SendEmail(_ context.Context, to, subject, _ string) error {
	// the body carries the code and is never logged
	m.log.Info("smtp not configured, mail dropped", "to", to, "subject", subject)
	return nil
}
