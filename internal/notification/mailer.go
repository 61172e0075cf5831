package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/config"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	Send(ctx context.Context, n *domain.Notification) error
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	dialer     sender
	from       string
	senderName string
	log        *slog.Logger
}

func NewSMTPMailer(cfg config.Mail, log *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:       cfg.Sender,
		senderName: cfg.SenderName,
		log:        log,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, n *domain.Notification) error {
	const op = "internal.notification.SMTPMailer.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.senderName)
	msg.SetHeader("To", n.Recipient)
	msg.SetHeader("Subject", n.Subject)
	msg.SetBody("text/html", n.BodyHTML)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("%s: %w", op, &apperrors.UpstreamError{Provider: "smtp", Op: "send " + string(n.Kind), Err: err})
	}

	m.log.Debug("email sent",
		slog.String("op", op),
		slog.String("kind", string(n.Kind)),
		slog.Int64("notification_id", n.ID),
	)

	return nil
}
