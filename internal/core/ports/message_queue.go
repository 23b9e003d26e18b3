package ports

import (
	"context"

	"github.com/GoArmGo/AuthService/internal/messaging/payloads"
)

// PasswordResetNotifier доставляет пользователю ссылку на сброс пароля.
// Реализации: публикация в RabbitMQ (доставит воркер) или прямая отправка письма.
type PasswordResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, payload payloads.PasswordResetPayload) error
}

// PasswordResetConsumer определяет методы для потребления сообщений о сбросе пароля,
// используется воркером для получения задач из очереди
type PasswordResetConsumer interface {
	// StartConsumingPasswordResets начинает прослушивание очереди;
	// handler вызывается для каждого полученного сообщения
	StartConsumingPasswordResets(ctx context.Context, handler func(context.Context, payloads.PasswordResetPayload) error) error
}
