package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"
)

// HTTPObserver принимает итог каждого запроса (реализует observability.Metrics)
type HTTPObserver interface {
	ObserveHTTP(method string, status int)
}

// RequestLogger — middleware для логирования HTTP-запросов.
// Если obs не nil, статус ответа также уходит в метрики.
func RequestLogger(logger *slog.Logger, obs HTTPObserver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			if obs != nil {
				obs.ObserveHTTP(r.Method, ww.statusCode)
			}
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// CORS разрешает запросы с любого origin с любыми заголовками; preflight отвечает 204.
func CORS() func(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}).Handler
}

// responseWriter нужен, чтобы перехватывать код ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
