package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoArmGo/AuthService/internal/core/ports"
)

// runWorker читает задачи сброса пароля из очереди и отправляет письма до отмены ctx
func runWorker(
	ctx context.Context,
	logger *slog.Logger,
	consumer ports.PasswordResetConsumer,
	mailer ports.PasswordResetNotifier,
) error {
	if consumer == nil || mailer == nil {
		return errors.New("режим worker требует NOTIFY_MODE=queue")
	}

	if err := consumer.StartConsumingPasswordResets(ctx, mailer.NotifyPasswordReset); err != nil {
		return fmt.Errorf("ошибка при запуске потребителя RabbitMQ: %w", err)
	}

	logger.Info("worker started, waiting for password reset messages")
	<-ctx.Done()
	logger.Info("shutdown signal received, worker stopped")
	return nil
}
