package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/GoArmGo/AuthService/internal/auth"
	"github.com/GoArmGo/AuthService/internal/database/memory"
	"github.com/GoArmGo/AuthService/internal/domain"
	"github.com/GoArmGo/AuthService/internal/logger"
	"github.com/GoArmGo/AuthService/internal/messaging/payloads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testResetBaseURL = "http://localhost:8081/resetPassword"

type recordingNotifier struct {
	mu   sync.Mutex
	sent []payloads.PasswordResetPayload
	err  error
}

func (n *recordingNotifier) NotifyPasswordReset(_ context.Context, p payloads.PasswordResetPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, p)
	return nil
}

func (n *recordingNotifier) last(t *testing.T) payloads.PasswordResetPayload {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	return n.sent[len(n.sent)-1]
}

type sequenceTokens struct {
	mu sync.Mutex
	n  int
}

func (g *sequenceTokens) NewToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("token-%d", g.n), nil
}

// failingStore отвечает ошибкой на все обращения
type failingStore struct {
	*memory.UserStorage
	err error
}

func (s failingStore) ExistsByUsername(context.Context, string) (bool, error) { return false, s.err }
func (s failingStore) FindByUsername(context.Context, string) (*domain.User, error) {
	return nil, s.err
}
func (s failingStore) FindByEmail(context.Context, string) (*domain.User, error) { return nil, s.err }
func (s failingStore) ConsumeResetToken(context.Context, string, string) (*domain.User, error) {
	return nil, s.err
}

type fixture struct {
	uc       AccountUseCase
	store    *memory.UserStorage
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewUserStorage()
	notifier := &recordingNotifier{}
	uc := NewAccountUseCase(
		store,
		auth.NewBcryptHasher(bcrypt.MinCost),
		&sequenceTokens{},
		notifier,
		testResetBaseURL,
		logger.Discard(),
	)
	return &fixture{uc: uc, store: store, notifier: notifier}
}

func strPtr(s string) *string    { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestRegisterThenAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1"}))
	assert.NoError(t, f.uc.Authenticate(ctx, "bob", "secret1"))
}

func TestRegister_StoresSecretNotPlaintext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.Register(ctx, RegisterInput{Username: "  bob  ", Password: "secret1"}))

	u, err := f.store.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, u, "username must be stored trimmed")
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.NotEmpty(t, u.PasswordHash)
	assert.Nil(t, u.ResetToken)
}

func TestRegister_DuplicateIsConflictAndRecordUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1", Email: strPtr("bob@example.com")}))
	before, err := f.store.FindByUsername(ctx, "bob")
	require.NoError(t, err)

	err = f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "another1", Email: strPtr("other@example.com")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "User already exists", domain.MessageOf(err))

	after, err := f.store.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoError(t, f.uc.Authenticate(ctx, "bob", "secret1"))
}

func TestRegister_ConcurrentSameUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		in      RegisterInput
		wantMsg string
	}{
		{name: "missing username", in: RegisterInput{Password: "secret1"}, wantMsg: msgCredentialsRequired},
		{name: "blank username", in: RegisterInput{Username: "   ", Password: "secret1"}, wantMsg: msgCredentialsRequired},
		{name: "missing password", in: RegisterInput{Username: "bob"}, wantMsg: msgCredentialsRequired},
		{name: "username length 2", in: RegisterInput{Username: "bo", Password: "secret1"}, wantMsg: msgUsernameTooShort},
		{name: "username 2 after trim", in: RegisterInput{Username: " bo ", Password: "secret1"}, wantMsg: msgUsernameTooShort},
		{name: "password length 5", in: RegisterInput{Username: "bob", Password: "12345"}, wantMsg: msgPasswordTooShort},
		{name: "bad email", in: RegisterInput{Username: "bob", Password: "secret1", Email: strPtr("bob@example")}, wantMsg: msgInvalidEmail},
		{name: "email with space", in: RegisterInput{Username: "bob", Password: "secret1", Email: strPtr("b ob@example.com")}, wantMsg: msgInvalidEmail},
		{name: "contact too short", in: RegisterInput{Username: "bob", Password: "secret1", Contact: strPtr("123456")}, wantMsg: msgInvalidContact},
		{name: "contact too long", in: RegisterInput{Username: "bob", Password: "secret1", Contact: strPtr("1234567890123456")}, wantMsg: msgInvalidContact},
		{name: "contact letters", in: RegisterInput{Username: "bob", Password: "secret1", Contact: strPtr("12345abc")}, wantMsg: msgInvalidContact},
		{name: "age 0", in: RegisterInput{Username: "bob", Password: "secret1", Age: intPtr(0)}, wantMsg: msgInvalidAge},
		{name: "age 121", in: RegisterInput{Username: "bob", Password: "secret1", Age: intPtr(121)}, wantMsg: msgInvalidAge},
		{name: "height 0", in: RegisterInput{Username: "bob", Password: "secret1", Height: floatPtr(0)}, wantMsg: msgInvalidHeight},
		{name: "height 300.5", in: RegisterInput{Username: "bob", Password: "secret1", Height: floatPtr(300.5)}, wantMsg: msgInvalidHeight},
		{name: "weight negative", in: RegisterInput{Username: "bob", Password: "secret1", Weight: floatPtr(-1)}, wantMsg: msgInvalidWeight},
		{name: "weight 501", in: RegisterInput{Username: "bob", Password: "secret1", Weight: floatPtr(501)}, wantMsg: msgInvalidWeight},
		{name: "gender alien", in: RegisterInput{Username: "bob", Password: "secret1", Gender: strPtr("alien")}, wantMsg: msgInvalidGender},
		{
			name:    "first failing field wins",
			in:      RegisterInput{Username: "bob", Password: "secret1", Email: strPtr("nope"), Age: intPtr(0), Gender: strPtr("alien")},
			wantMsg: msgInvalidEmail,
		},
		{
			name:    "contact before age",
			in:      RegisterInput{Username: "bob", Password: "secret1", Contact: strPtr("1"), Age: intPtr(500)},
			wantMsg: msgInvalidContact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.uc.Register(context.Background(), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, tt.wantMsg, domain.MessageOf(err))

			exists, _ := f.store.ExistsByUsername(context.Background(), strings.TrimSpace(tt.in.Username))
			assert.False(t, exists)
		})
	}
}

func TestRegister_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "username length 3", in: RegisterInput{Username: "abc", Password: "secret1"}},
		{name: "password length 6", in: RegisterInput{Username: "bob", Password: "123456"}},
		{name: "age 1", in: RegisterInput{Username: "bob", Password: "secret1", Age: intPtr(1)}},
		{name: "age 120", in: RegisterInput{Username: "bob", Password: "secret1", Age: intPtr(120)}},
		{name: "height 300", in: RegisterInput{Username: "bob", Password: "secret1", Height: floatPtr(300)}},
		{name: "weight 500", in: RegisterInput{Username: "bob", Password: "secret1", Weight: floatPtr(500)}},
		{name: "contact 7 digits", in: RegisterInput{Username: "bob", Password: "secret1", Contact: strPtr("1234567")}},
		{name: "contact 15 digits", in: RegisterInput{Username: "bob", Password: "secret1", Contact: strPtr("123456789012345")}},
		{name: "empty optional strings", in: RegisterInput{Username: "bob", Password: "secret1", Email: strPtr(""), Gender: strPtr("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			assert.NoError(t, f.uc.Register(context.Background(), tt.in))
		})
	}
}

func TestRegister_GenderNormalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1", Gender: strPtr("Male")}))

	u, err := f.store.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, u.Gender)
	assert.Equal(t, domain.GenderMale, *u.Gender)
}

func TestRegister_CopiesOptionalFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.Register(ctx, RegisterInput{
		Username: "alice",
		Password: "secret1",
		Email:    strPtr(" alice@example.com "),
		Contact:  strPtr("5551234567"),
		Age:      intPtr(30),
		Height:   floatPtr(170.5),
		Weight:   floatPtr(60),
		Gender:   strPtr("prefer_not_say"),
	}))

	u, err := f.store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", *u.Email)
	assert.Equal(t, "5551234567", *u.Contact)
	assert.Equal(t, 30, *u.Age)
	assert.Equal(t, 170.5, *u.Height)
	assert.Equal(t, 60.0, *u.Weight)
	assert.Equal(t, domain.GenderPreferNotSay, *u.Gender)
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1"}))

	unknown := f.uc.Authenticate(ctx, "nobody", "secret1")
	wrong := f.uc.Authenticate(ctx, "bob", "wrong")

	require.Error(t, unknown)
	require.Error(t, wrong)
	assert.ErrorIs(t, unknown, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, wrong, domain.ErrInvalidCredentials)
	assert.Equal(t, unknown.Error(), wrong.Error())
	assert.Equal(t, "Invalid credentials", domain.MessageOf(wrong))
}

func TestAuthenticate_MissingFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.uc.Authenticate(ctx, "", "secret1"), domain.ErrValidation)
	assert.ErrorIs(t, f.uc.Authenticate(ctx, "bob", ""), domain.ErrValidation)
}

func TestAuthenticate_TrimsUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1"}))

	assert.NoError(t, f.uc.Authenticate(ctx, " bob ", "secret1"))
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1", Email: strPtr("bob@example.com")}))

	require.NoError(t, f.uc.RequestPasswordReset(ctx, "bob@example.com"))

	sent := f.notifier.last(t)
	assert.Equal(t, "bob@example.com", sent.Email)
	assert.Equal(t, "bob", sent.Username)
	assert.True(t, strings.HasPrefix(sent.ResetLink, testResetBaseURL+"?token="))

	token := tokenFromLink(t, sent.ResetLink)
	require.NotEmpty(t, token)

	stored, err := f.store.FindByResetToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, stored)

	require.NoError(t, f.uc.ResetPassword(ctx, token, "newpass1"))

	// токен одноразовый
	err = f.uc.ResetPassword(ctx, token, "another1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Invalid or expired token", domain.MessageOf(err))

	assert.ErrorIs(t, f.uc.Authenticate(ctx, "bob", "secret1"), domain.ErrInvalidCredentials)
	assert.NoError(t, f.uc.Authenticate(ctx, "bob", "newpass1"))

	u, err := f.store.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, u.ResetToken)
}

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	err := f.uc.RequestPasswordReset(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "User not found", domain.MessageOf(err))
	assert.Empty(t, f.notifier.sent)
}

func TestRequestPasswordReset_MissingEmail(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.uc.RequestPasswordReset(context.Background(), "  "), domain.ErrValidation)
}

func TestRequestPasswordReset_NotificationFailureKeepsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1", Email: strPtr("bob@example.com")}))

	f.notifier.err = errors.New("smtp: connection refused")
	err := f.uc.RequestPasswordReset(ctx, "bob@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotificationFailure)
	assert.NotErrorIs(t, err, domain.ErrStoreFailure)

	// токен уже сохранён, хотя письмо не ушло
	u, err := f.store.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, u.HasResetToken())
}

func TestRequestPasswordReset_NewTokenReplacesOld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1", Email: strPtr("bob@example.com")}))

	require.NoError(t, f.uc.RequestPasswordReset(ctx, "bob@example.com"))
	first := tokenFromLink(t, f.notifier.last(t).ResetLink)
	require.NoError(t, f.uc.RequestPasswordReset(ctx, "bob@example.com"))
	second := tokenFromLink(t, f.notifier.last(t).ResetLink)

	assert.NotEqual(t, first, second)
	assert.ErrorIs(t, f.uc.ResetPassword(ctx, first, "newpass1"), domain.ErrNotFound)
	assert.NoError(t, f.uc.ResetPassword(ctx, second, "newpass1"))
}

func TestResetPassword_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.uc.ResetPassword(ctx, "", "newpass1"), domain.ErrValidation)
	assert.ErrorIs(t, f.uc.ResetPassword(ctx, "tok", ""), domain.ErrValidation)

	err := f.uc.ResetPassword(ctx, "tok", "12345")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, msgPasswordTooShort, domain.MessageOf(err))
}

func TestResetPassword_NeverIssuedToken(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.uc.ResetPassword(context.Background(), "never-issued", "newpass1"), domain.ErrNotFound)
}

func TestResetPassword_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1", Email: strPtr("bob@example.com")}))
	require.NoError(t, f.uc.RequestPasswordReset(ctx, "bob@example.com"))
	token := tokenFromLink(t, f.notifier.last(t).ResetLink)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.uc.ResetPassword(ctx, token, fmt.Sprintf("newpass%d", i))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, 1, winners)
}

func TestGetUserByUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1", Age: intPtr(42)}))

	u, err := f.uc.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.Equal(t, 42, *u.Age)

	_, err = f.uc.GetUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreFailuresAreDistinctFromNotFound(t *testing.T) {
	store := failingStore{UserStorage: memory.NewUserStorage(), err: errors.New("connection refused")}
	uc := NewAccountUseCase(store, auth.NewBcryptHasher(bcrypt.MinCost), &sequenceTokens{}, &recordingNotifier{}, testResetBaseURL, logger.Discard())
	ctx := context.Background()

	assert.ErrorIs(t, uc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1"}), domain.ErrStoreFailure)
	assert.ErrorIs(t, uc.Authenticate(ctx, "bob", "secret1"), domain.ErrStoreFailure)
	assert.ErrorIs(t, uc.RequestPasswordReset(ctx, "bob@example.com"), domain.ErrStoreFailure)
	assert.ErrorIs(t, uc.ResetPassword(ctx, "tok", "newpass1"), domain.ErrStoreFailure)

	_, err := uc.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrStoreFailure)
	assert.Equal(t, domain.KindStoreFailure, domain.KindOf(err))
}

func TestResetLink_AppendsToExistingQuery(t *testing.T) {
	uc := &accountUseCase{resetBaseURL: "https://app.example.com/reset?lang=en"}
	assert.Equal(t, "https://app.example.com/reset?lang=en&token=abc", uc.resetLink("abc"))
}

// brokenHasher не умеет хэшировать и запоминает, с чем сравнивали
type brokenHasher struct {
	mu      sync.Mutex
	secrets []string
}

func (h *brokenHasher) Hash(string) (string, error) { return "", errors.New("entropy exhausted") }

func (h *brokenHasher) Verify(_, secret string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.secrets = append(h.secrets, secret)
	return false
}

func TestAuthenticate_UnknownUserWhenDummyHashFails(t *testing.T) {
	hasher := &brokenHasher{}
	uc := NewAccountUseCase(
		memory.NewUserStorage(),
		hasher,
		&sequenceTokens{},
		&recordingNotifier{},
		testResetBaseURL,
		logger.Discard(),
	)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := uc.Authenticate(ctx, "ghost", "secret1")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	require.Len(t, hasher.secrets, 2)
	for _, secret := range hasher.secrets {
		assert.Equal(t, fallbackDummyHash, secret)
	}

	// запасной хэш должен быть настоящим bcrypt-хэшем, иначе сравнение не тратит время
	cost, err := bcrypt.Cost([]byte(fallbackDummyHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
