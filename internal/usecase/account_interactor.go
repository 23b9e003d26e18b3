package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/GoArmGo/AuthService/internal/core/ports"
	"github.com/GoArmGo/AuthService/internal/domain"
	"github.com/GoArmGo/AuthService/internal/messaging/payloads"
)

// пароль для фиктивной проверки, когда пользователь не найден
const dummyPassword = "authservice-timing-equalizer"

// fallbackDummyHash — готовый bcrypt-хэш (cost 10) на случай, если Hash не сработал
const fallbackDummyHash = "$2a$10$k1wbIrmNyFAPwPVPSVa/zecw2BCEnBwVS2GbrmgzxFUOqW9dk4TCW"

const msgStoreUnavailable = "Service temporarily unavailable"

// accountUseCase implements AccountUseCase
type accountUseCase struct {
	users        ports.UserStorage
	hasher       ports.PasswordHasher
	tokens       ports.TokenGenerator
	notifier     ports.PasswordResetNotifier
	validator    *fieldValidator
	resetBaseURL string
	logger       *slog.Logger

	dummyOnce   sync.Once
	dummySecret string
}

// NewAccountUseCase создает новый экземпляр AccountUseCase.
// resetBaseURL — адрес страницы сброса, к нему добавляется ?token=<token>.
func NewAccountUseCase(
	users ports.UserStorage,
	hasher ports.PasswordHasher,
	tokens ports.TokenGenerator,
	notifier ports.PasswordResetNotifier,
	resetBaseURL string,
	logger *slog.Logger,
) AccountUseCase {
	return &accountUseCase{
		users:        users,
		hasher:       hasher,
		tokens:       tokens,
		notifier:     notifier,
		validator:    newFieldValidator(),
		resetBaseURL: resetBaseURL,
		logger:       logger.With("component", "usecase"),
	}
}

// Register проверяет ввод, хэширует пароль и вставляет запись, если username свободен
func (uc *accountUseCase) Register(ctx context.Context, in RegisterInput) error {
	start := time.Now()

	username, err := validateCredentials(in.Username, in.Password)
	if err != nil {
		return err
	}

	exists, err := uc.users.ExistsByUsername(ctx, username)
	if err != nil {
		uc.logger.Error("failed to check username", "username", username, "error", err)
		return domain.NewStoreFailure(msgStoreUnavailable, err)
	}
	if exists {
		return domain.NewConflictError("User already exists")
	}

	profile, err := uc.validator.validateProfile(in)
	if err != nil {
		return err
	}

	secret, err := uc.hasher.Hash(in.Password)
	if err != nil {
		uc.logger.Error("failed to hash password", "username", username, "error", err)
		return &domain.AccountError{Kind: domain.KindUnknown, Message: "Failed to register user", Err: err}
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: secret,
		Email:        profile.Email,
		Contact:      profile.Contact,
		Age:          profile.Age,
		Height:       profile.Height,
		Weight:       profile.Weight,
		Gender:       profile.Gender,
	}

	if err := uc.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			// проиграли гонку с параллельной регистрацией
			return domain.NewConflictError("User already exists")
		}
		uc.logger.Error("failed to create user", "username", username, "error", err)
		return domain.NewStoreFailure(msgStoreUnavailable, err)
	}

	uc.logger.Info("user registered",
		"user_id", user.ID,
		"username", username,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Authenticate сверяет пароль с сохранённым хэшем.
// Для несуществующего пользователя тоже выполняется bcrypt-проверка, чтобы время ответа не выдавало разницу.
func (uc *accountUseCase) Authenticate(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.NewValidationError(msgCredentialsRequired)
	}

	user, err := uc.users.FindByUsername(ctx, username)
	if err != nil {
		uc.logger.Error("failed to load user for authentication", "username", username, "error", err)
		return domain.NewStoreFailure(msgStoreUnavailable, err)
	}

	if user == nil {
		uc.hasher.Verify(password, uc.dummyHash())
		uc.logger.Info("authentication failed", "username", username)
		return domain.NewInvalidCredentialsError()
	}

	if !uc.hasher.Verify(password, user.PasswordHash) {
		uc.logger.Info("authentication failed", "username", username)
		return domain.NewInvalidCredentialsError()
	}

	uc.logger.Info("user authenticated", "user_id", user.ID, "username", username)
	return nil
}

// RequestPasswordReset выдаёт токен, сохраняет его и отправляет ссылку.
// Токен сохраняется до отправки: если отправка упала, токен остаётся действительным,
// а клиент получает KindNotificationFailure.
func (uc *accountUseCase) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.NewValidationError(msgEmailRequired)
	}

	user, err := uc.users.FindByEmail(ctx, email)
	if err != nil {
		uc.logger.Error("failed to load user by email", "error", err)
		return domain.NewStoreFailure(msgStoreUnavailable, err)
	}
	if user == nil {
		uc.logger.Info("password reset requested for unknown email")
		return domain.NewNotFoundError("User not found")
	}

	token, err := uc.tokens.NewToken()
	if err != nil {
		uc.logger.Error("failed to generate reset token", "error", err)
		return &domain.AccountError{Kind: domain.KindUnknown, Message: "Failed to generate reset token", Err: err}
	}

	if err := uc.users.AssignResetToken(ctx, user.Username, token); err != nil {
		uc.logger.Error("failed to persist reset token", "username", user.Username, "error", err)
		return domain.NewStoreFailure(msgStoreUnavailable, err)
	}

	payload := payloads.PasswordResetPayload{
		Email:     email,
		Username:  user.Username,
		ResetLink: uc.resetLink(token),
	}
	if err := uc.notifier.NotifyPasswordReset(ctx, payload); err != nil {
		uc.logger.Error("reset token persisted but notification failed",
			"username", user.Username,
			"error", err,
		)
		return domain.NewNotificationFailure("Failed to send password reset email", err)
	}

	uc.logger.Info("password reset requested", "user_id", user.ID, "username", user.Username)
	return nil
}

// ResetPassword хэширует новый пароль и одной атомарной записью меняет его и гасит токен
func (uc *accountUseCase) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return domain.NewValidationError(msgTokenRequired)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	secret, err := uc.hasher.Hash(newPassword)
	if err != nil {
		uc.logger.Error("failed to hash new password", "error", err)
		return &domain.AccountError{Kind: domain.KindUnknown, Message: "Failed to reset password", Err: err}
	}

	user, err := uc.users.ConsumeResetToken(ctx, token, secret)
	if err != nil {
		uc.logger.Error("failed to consume reset token", "error", err)
		return domain.NewStoreFailure(msgStoreUnavailable, err)
	}
	if user == nil {
		uc.logger.Info("password reset with unknown or used token")
		return domain.NewNotFoundError("Invalid or expired token")
	}

	uc.logger.Info("password reset completed", "user_id", user.ID, "username", user.Username)
	return nil
}

// GetUserByUsername получает пользователя по username
func (uc *accountUseCase) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewValidationError("Username is required")
	}

	user, err := uc.users.FindByUsername(ctx, username)
	if err != nil {
		uc.logger.Error("failed to load user", "username", username, "error", err)
		return nil, domain.NewStoreFailure(msgStoreUnavailable, err)
	}
	if user == nil {
		return nil, domain.NewNotFoundError("User not found")
	}
	return user, nil
}

// resetLink собирает <base>?token=<token>; если в base уже есть query, токен добавляется через &
func (uc *accountUseCase) resetLink(token string) string {
	sep := "?"
	if strings.Contains(uc.resetBaseURL, "?") {
		sep = "&"
	}
	return uc.resetBaseURL + sep + "token=" + url.QueryEscape(token)
}

// dummyHash лениво считает хэш для фиктивной проверки
func (uc *accountUseCase) dummyHash() string {
	uc.dummyOnce.Do(func() {
		secret, err := uc.hasher.Hash(dummyPassword)
		if err != nil {
			uc.logger.Warn("failed to prepare dummy hash, using fallback", "error", err)
			secret = fallbackDummyHash
		}
		uc.dummySecret = secret
	})
	return uc.dummySecret
}
