package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"report-workers/internal/common/config"
	"report-workers/internal/common/logger"
)

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends through a plain SMTP relay, upgrading with STARTTLS when configured.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	useTLS   bool
	send     sendFunc
	logger   logger.Logger
}

func NewSMTPMailer(cfg config.MailConfig, log logger.Logger) *SMTPMailer {
	m := &SMTPMailer{
		host:     cfg.SMTP.Host,
		port:     cfg.SMTP.Port,
		username: cfg.SMTP.Username,
		password: cfg.SMTP.Password,
		useTLS:   cfg.SMTP.UseTLS,
		logger:   log.WithFields(map[string]interface{}{"component": "smtp-mailer"}),
	}
	if m.useTLS {
		m.send = m.sendWithTLS
	} else {
		m.send = smtp.SendMail
	}
	return m
}

// Send runs the blocking SMTP dialogue in its own goroutine and gives up when ctx is done.
// net/smtp has no context support, so an abandoned dialogue finishes in the background.
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	var auth smtp.Auth
	if m.username != "" && m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, msg.From, msg.To, raw)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		m.logger.Info("Email sent", map[string]interface{}{
			"to":          msg.To,
			"attachments": len(msg.Attachments),
		})
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send abandoned: %w", ctx.Err())
	}
}

func (m *SMTPMailer) sendWithTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err = client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}
