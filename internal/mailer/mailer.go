package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/lessonhub/platform/internal/config"
)

// SMTP is an explicitly constructed mail client owned by the composition
// root; there is no package-level transporter.
type SMTP struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTP(cfg *config.Config) *SMTP {
	return &SMTP{
		host:     cfg.SMTP_HOST,
		port:     cfg.SMTP_PORT,
		username: cfg.SMTP_USER,
		password: cfg.SMTP_PASSWORD,
		from:     cfg.SMTP_FROM,
	}
}

func (m *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if m.host == "" {
		return fmt.Errorf("mailer: SMTP_HOST not configured")
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", m.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := net.JoinHostPort(m.host, fmt.Sprint(m.port))

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String()))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: send to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
