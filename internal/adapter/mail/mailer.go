package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/AuthService/internal/messaging/payloads"
)

// Transport доставляет готовое письмо получателю
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer реализует ports.PasswordResetNotifier прямой отправкой письма.
// В режиме очереди его же вызывает воркер.
type Mailer struct {
	from      string
	transport Transport
	logger    *slog.Logger
}

func NewMailer(from string, transport Transport, logger *slog.Logger) *Mailer {
	return &Mailer{
		from:      from,
		transport: transport,
		logger:    logger.With("component", "mailer"),
	}
}

func (m *Mailer) NotifyPasswordReset(ctx context.Context, p payloads.PasswordResetPayload) error {
	if p.Email == "" {
		return fmt.Errorf("password reset for %q: recipient email is empty", p.Username)
	}

	start := time.Now()
	msg := NewPasswordResetMessage(m.from, p)
	if err := m.transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}

	m.logger.Info("password reset email sent",
		"username", p.Username,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
