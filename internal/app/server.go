package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/GoArmGo/AuthService/internal/config"
	"github.com/GoArmGo/AuthService/internal/handler"
	"github.com/GoArmGo/AuthService/internal/observability"
	"github.com/GoArmGo/AuthService/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 30 * time.Second

// newRouter собирает chi-роутер: /api/auth/*, /healthz, /metrics
func newRouter(
	cfg *config.Config,
	logger *slog.Logger,
	accounts usecase.AccountUseCase,
	metrics *observability.Metrics,
) http.Handler {
	accountHandler := handler.NewAccountHandler(observability.InstrumentAccounts(accounts, metrics), logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.RequestLogger(logger, metrics))
	r.Use(middleware.Recoverer)
	r.Use(handler.CORS())
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Route("/api/auth", accountHandler.Routes)
	r.Get("/healthz", accountHandler.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// runServer запускает HTTP-сервер и ждёт отмены ctx
func runServer(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	accounts usecase.AccountUseCase,
	metrics *observability.Metrics,
) error {
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           newRouter(cfg, logger, accounts, metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("ошибка при запуске сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
