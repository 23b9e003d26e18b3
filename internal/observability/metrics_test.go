package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GoArmGo/AuthService/internal/domain"
	"github.com/GoArmGo/AuthService/internal/usecase"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccounts struct {
	err error
}

func (s stubAccounts) Register(context.Context, usecase.RegisterInput) error { return s.err }
func (s stubAccounts) Authenticate(context.Context, string, string) error    { return s.err }
func (s stubAccounts) RequestPasswordReset(context.Context, string) error    { return s.err }
func (s stubAccounts) ResetPassword(context.Context, string, string) error   { return s.err }
func (s stubAccounts) GetUserByUsername(context.Context, string) (*domain.User, error) {
	return nil, s.err
}

func TestObserveOperation_Outcomes(t *testing.T) {
	m := NewMetrics()

	m.ObserveOperation(OpRegister, nil, time.Millisecond)
	m.ObserveOperation(OpRegister, domain.NewConflictError("User already exists"), time.Millisecond)
	m.ObserveOperation(OpRegister, domain.NewConflictError("User already exists"), time.Millisecond)
	m.ObserveOperation(OpAuthenticate, errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.accountOps.WithLabelValues(OpRegister, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.accountOps.WithLabelValues(OpRegister, "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.accountOps.WithLabelValues(OpAuthenticate, "unknown")))
}

func TestInstrumentAccounts(t *testing.T) {
	m := NewMetrics()
	uc := InstrumentAccounts(stubAccounts{err: domain.NewInvalidCredentialsError()}, m)

	err := uc.Authenticate(context.Background(), "bob", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = uc.GetUserByUsername(context.Background(), "ghost")
	assert.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.accountOps.WithLabelValues(OpAuthenticate, "invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.accountOps.WithLabelValues(OpGetUser, "invalid_credentials")))
}

func TestHandler_ExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveHTTP(http.MethodPost, http.StatusCreated)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `authservice_http_requests_total{method="POST",status="201"} 1`)
}
