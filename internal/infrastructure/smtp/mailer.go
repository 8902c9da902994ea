package smtp

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/go-waitlist-api/internal/config"
)

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer returns an SMTP mailer sending HTML bodies.
func NewMailer(cfg *config.Config) *mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.MailFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		send:     smtp.SendMail,
	}
}

func (m *mailer) SendEmail(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.from, to, subject, html)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return m.send(addr, auth, envelopeAddress(m.from), []string{to}, []byte(msg))
}

// envelopeAddress extracts the bare address from "Name <addr>".
func envelopeAddress(from string) string {
	for i := len(from) - 1; i >= 0; i-- {
		if from[i] == '<' {
			end := len(from)
			if from[end-1] == '>' {
				end--
			}
			return from[i+1 : end]
		}
	}
	return from
}
