package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/GoArmGo/AuthService/internal/config"
	"github.com/GoArmGo/AuthService/internal/core/ports"
	"github.com/GoArmGo/AuthService/internal/observability"
	"github.com/GoArmGo/AuthService/internal/usecase"
)

// Режимы запуска
const (
	ModeServer = "server"
	ModeWorker = "worker"
)

// App — собранное приложение: HTTP-сервер или воркер рассылки писем.
type App struct {
	Config   *config.Config
	logger   *slog.Logger
	accounts usecase.AccountUseCase
	metrics  *observability.Metrics

	// resetConsumer и mailer нужны только воркеру (NOTIFY_MODE=queue)
	resetConsumer ports.PasswordResetConsumer
	mailer        ports.PasswordResetNotifier

	closers []func() error
}

func NewApp(
	cfg *config.Config,
	logger *slog.Logger,
	accounts usecase.AccountUseCase,
	metrics *observability.Metrics,
	resetConsumer ports.PasswordResetConsumer,
	mailer ports.PasswordResetNotifier,
	closers ...func() error,
) *App {
	return &App{
		Config:        cfg,
		logger:        logger,
		accounts:      accounts,
		metrics:       metrics,
		resetConsumer: resetConsumer,
		mailer:        mailer,
		closers:       closers,
	}
}

// LoggerIns возвращает основной логгер приложения
func (a *App) LoggerIns() *slog.Logger {
	return a.logger
}

// Run запускает приложение в выбранном режиме и блокируется до SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context, mode string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("starting", "mode", mode)

	var err error
	switch mode {
	case ModeServer:
		err = runServer(ctx, a.Config, a.logger, a.accounts, a.metrics)
	case ModeWorker:
		err = runWorker(ctx, a.logger, a.resetConsumer, a.mailer)
	default:
		err = fmt.Errorf("неизвестный режим: %s (используйте 'server' или 'worker')", mode)
	}

	if closeErr := a.Shutdown(); closeErr != nil {
		a.logger.Error("shutdown finished with errors", "error", closeErr)
	}
	return err
}

// Shutdown закрывает ресурсы в обратном порядке создания
func (a *App) Shutdown() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
