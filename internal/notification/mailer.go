package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/wneessen/go-mail"

	"villabook/internal/config"
)

type Message struct {
	To      []string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

type SMTPMailer struct {
	client   *mail.Client
	from     string
	fromName string
}

func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: c, from: cfg.From, fromName: cfg.FromName}, nil
}

func (m *SMTPMailer) buildMsg(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.FromFormat(m.fromName, m.from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := out.To(msg.To...); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)
	return out, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out, err := m.buildMsg(msg)
	if err != nil {
		return err
	}
	return m.client.DialAndSendWithContext(ctx, out)
}

// LogMailer only logs outgoing mail. Used when SMTP is not configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, m Message) error {
	log.Printf("level=info msg=email not sent (smtp disabled) to=%v subject=%q", m.To, m.Subject)
	return nil
}

func NewMailer(cfg config.SMTPConfig) Mailer {
	if !cfg.Enabled() {
		return LogMailer{}
	}
	m, err := NewSMTPMailer(cfg)
	if err != nil {
		log.Printf("level=warn msg=smtp mailer unavailable, logging mail instead err=%v", err)
		return LogMailer{}
	}
	return m
}
