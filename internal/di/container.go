package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoArmGo/AuthService/internal/adapter/mail"
	"github.com/GoArmGo/AuthService/internal/adapter/storage/minio"
	"github.com/GoArmGo/AuthService/internal/app"
	"github.com/GoArmGo/AuthService/internal/auth"
	"github.com/GoArmGo/AuthService/internal/config"
	"github.com/GoArmGo/AuthService/internal/core/ports"
	"github.com/GoArmGo/AuthService/internal/database/client"
	"github.com/GoArmGo/AuthService/internal/database/memory"
	"github.com/GoArmGo/AuthService/internal/database/postgres"
	"github.com/GoArmGo/AuthService/internal/database/storage"
	"github.com/GoArmGo/AuthService/internal/logger"
	"github.com/GoArmGo/AuthService/internal/observability"
	"github.com/GoArmGo/AuthService/internal/rabbitmq"
	"github.com/GoArmGo/AuthService/internal/usecase"
)

// BuildApp инициализирует все зависимости и возвращает готовый объект App.
func BuildApp(ctx context.Context) (*app.App, error) {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slogger := logger.NewSlog(logger.SlogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slogger.Info("logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)

	var closers []func() error
	fail := func(err error) (*app.App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	// 2. Хранилище пользователей
	users, closeStore, err := buildUserStorage(cfg, slogger)
	if err != nil {
		return fail(err)
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	// 3. Доставка писем
	transport, err := buildMailTransport(ctx, cfg, slogger)
	if err != nil {
		return fail(err)
	}
	mailer := mail.NewMailer(cfg.Mail.From, transport, slogger)

	var (
		notifier ports.PasswordResetNotifier = mailer
		consumer ports.PasswordResetConsumer
		worker   ports.PasswordResetNotifier
	)
	if cfg.NotifyMode == config.NotifyModeQueue {
		rabbitMQClient, err := rabbitmq.NewClient(cfg, slogger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() error { rabbitMQClient.Close(); return nil })

		// сервер публикует задачу, воркер читает её и отправляет письмо
		notifier = rabbitMQClient
		consumer = rabbitMQClient
		worker = mailer
	}

	// 4. Бизнес-логика
	accounts := usecase.NewAccountUseCase(
		users,
		auth.NewBcryptHasher(cfg.BcryptCost),
		auth.NewTokenGenerator(),
		notifier,
		cfg.ResetBaseURL,
		slogger,
	)

	application := app.NewApp(
		cfg,
		slogger,
		accounts,
		observability.NewMetrics(),
		consumer,
		worker,
		closers...,
	)

	slogger.Info("dependencies initialized",
		"store_driver", cfg.StoreDriver,
		"notify_mode", cfg.NotifyMode,
		"mail_transport", cfg.Mail.Transport,
	)
	return application, nil
}

// buildUserStorage выбирает реализацию ports.UserStorage по STORE_DRIVER.
// Возвращает функцию закрытия соединения (nil для memory).
func buildUserStorage(cfg *config.Config, log *slog.Logger) (ports.UserStorage, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory user storage, data is lost on restart")
		return memory.NewUserStorage(), nil, nil

	case config.StoreDriverSQLX, config.StoreDriverGorm:
		dbClient, err := client.NewClient(cfg, log)
		if err != nil {
			return nil, nil, err
		}

		if cfg.StoreDriver == config.StoreDriverSQLX {
			return storage.NewUserStorage(dbClient.DB, log), dbClient.Close, nil
		}

		gormDB, err := postgres.NewGormDB(dbClient.DB.DB, log)
		if err != nil {
			_ = dbClient.Close()
			return nil, nil, err
		}
		return postgres.NewGormUserStorage(gormDB, log), dbClient.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// buildMailTransport выбирает SMTP или складирование писем в MinIO по MAIL_TRANSPORT
func buildMailTransport(ctx context.Context, cfg *config.Config, log *slog.Logger) (mail.Transport, error) {
	switch cfg.Mail.Transport {
	case config.MailTransportSMTP:
		return mail.NewSMTPTransport(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.SMTPUsername, cfg.Mail.SMTPPassword), nil

	case config.MailTransportS3:
		fileStorage, err := minio.NewMinioClient(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return mail.NewDropTransport(fileStorage, log), nil

	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Mail.Transport)
	}
}
