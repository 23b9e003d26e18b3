// Package observability содержит prometheus-метрики сервиса.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/GoArmGo/AuthService/internal/domain"
	"github.com/GoArmGo/AuthService/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Имена операций в метке operation
const (
	OpRegister             = "register"
	OpAuthenticate         = "authenticate"
	OpRequestPasswordReset = "request_password_reset"
	OpResetPassword        = "reset_password"
	OpGetUser              = "get_user"
)

const outcomeSuccess = "success"

// Metrics держит собственный registry, чтобы тесты не делили глобальное состояние.
type Metrics struct {
	registry *prometheus.Registry

	accountOps   *prometheus.CounterVec
	accountTime  *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		accountOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authservice_account_operations_total",
				Help: "Total number of account operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		accountTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authservice_account_operation_duration_seconds",
				Help:    "Account operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authservice_http_requests_total",
				Help: "Total number of HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),
	}

	m.registry.MustRegister(
		m.accountOps,
		m.accountTime,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOperation записывает исход операции: success или вид ошибки (validation, conflict, ...).
func (m *Metrics) ObserveOperation(operation string, err error, took time.Duration) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = domain.KindOf(err).String()
	}
	m.accountOps.WithLabelValues(operation, outcome).Inc()
	m.accountTime.WithLabelValues(operation).Observe(took.Seconds())
}

func (m *Metrics) ObserveHTTP(method string, status int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler отдаёт метрики для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// instrumentedAccounts оборачивает AccountUseCase и считает исходы операций
type instrumentedAccounts struct {
	next    usecase.AccountUseCase
	metrics *Metrics
}

// InstrumentAccounts возвращает AccountUseCase, который пишет метрики на каждый вызов.
func InstrumentAccounts(next usecase.AccountUseCase, m *Metrics) usecase.AccountUseCase {
	return &instrumentedAccounts{next: next, metrics: m}
}

func (i *instrumentedAccounts) Register(ctx context.Context, in usecase.RegisterInput) error {
	start := time.Now()
	err := i.next.Register(ctx, in)
	i.metrics.ObserveOperation(OpRegister, err, time.Since(start))
	return err
}

func (i *instrumentedAccounts) Authenticate(ctx context.Context, username, password string) error {
	start := time.Now()
	err := i.next.Authenticate(ctx, username, password)
	i.metrics.ObserveOperation(OpAuthenticate, err, time.Since(start))
	return err
}

func (i *instrumentedAccounts) RequestPasswordReset(ctx context.Context, email string) error {
	start := time.Now()
	err := i.next.RequestPasswordReset(ctx, email)
	i.metrics.ObserveOperation(OpRequestPasswordReset, err, time.Since(start))
	return err
}

func (i *instrumentedAccounts) ResetPassword(ctx context.Context, token, newPassword string) error {
	start := time.Now()
	err := i.next.ResetPassword(ctx, token, newPassword)
	i.metrics.ObserveOperation(OpResetPassword, err, time.Since(start))
	return err
}

func (i *instrumentedAccounts) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	start := time.Now()
	user, err := i.next.GetUserByUsername(ctx, username)
	i.metrics.ObserveOperation(OpGetUser, err, time.Since(start))
	return user, err
}
