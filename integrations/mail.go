package integrations

import (
	"context"

	"fencing-backend/config"
	"fencing-backend/services"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTPMailer sends HTML mail through the configured relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg services.MailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTMLBody)
	return m.dialer.DialAndSend(gm)
}

// LogMailer stands in when no SMTP host is configured. It never delivers.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg services.MailMessage) error {
	m.logger.Info("mail not sent, smtp disabled", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
