package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/AuthService/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, username, password_hash, email, contact, age, height, weight, gender, reset_token, created_at, updated_at`

const (
	insertUserIfAbsentQuery = `
	INSERT INTO users (` + userColumns + `)
	VALUES (:id, :username, :password_hash, :email, :contact, :age, :height, :weight, :gender, :reset_token, :created_at, :updated_at)
	ON CONFLICT (username) DO NOTHING
	`

	upsertUserQuery = `
	INSERT INTO users (` + userColumns + `)
	VALUES (:id, :username, :password_hash, :email, :contact, :age, :height, :weight, :gender, :reset_token, :created_at, :updated_at)
	ON CONFLICT (username) DO UPDATE SET
		password_hash = EXCLUDED.password_hash,
		email         = EXCLUDED.email,
		contact       = EXCLUDED.contact,
		age           = EXCLUDED.age,
		height        = EXCLUDED.height,
		weight        = EXCLUDED.weight,
		gender        = EXCLUDED.gender,
		reset_token   = EXCLUDED.reset_token,
		updated_at    = EXCLUDED.updated_at
	RETURNING ` + userColumns

	consumeResetTokenQuery = `
	UPDATE users
	SET password_hash = $1, reset_token = NULL, updated_at = $2
	WHERE reset_token = $3
	RETURNING ` + userColumns
)

// UserStorage реализует интерфейс ports.UserStorage на sqlx
type UserStorage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewUserStorage создает новый экземпляр UserStorage
func NewUserStorage(db *sqlx.DB, logger *slog.Logger) *UserStorage {
	return &UserStorage{db: db, logger: logger}
}

// ExistsByUsername проверяет, занят ли username
func (s *UserStorage) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
	if err != nil {
		s.logger.Error("failed to check username", "username", username, "error", err)
		return false, fmt.Errorf("ошибка при проверке существования пользователя: %w", err)
	}
	return exists, nil
}

// FindByUsername получает пользователя по username
func (s *UserStorage) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, "username", `SELECT `+userColumns+` FROM users WHERE username = $1 LIMIT 1`, username)
}

// FindByEmail получает самого раннего пользователя с таким email
func (s *UserStorage) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, "email", `SELECT `+userColumns+` FROM users WHERE email = $1 ORDER BY created_at ASC LIMIT 1`, email)
}

// FindByResetToken получает пользователя по действующему токену сброса
func (s *UserStorage) FindByResetToken(ctx context.Context, token string) (*domain.User, error) {
	return s.findOne(ctx, "reset_token", `SELECT `+userColumns+` FROM users WHERE reset_token = $1 LIMIT 1`, token)
}

func (s *UserStorage) findOne(ctx context.Context, by, query string, arg any) (*domain.User, error) {
	start := time.Now()

	var user domain.User
	err := s.db.GetContext(ctx, &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("user not found", "by", by)
			return nil, nil
		}
		s.logger.Error("failed to get user", "by", by, "error", err)
		return nil, fmt.Errorf("ошибка при получении пользователя по %s: %w", by, err)
	}

	s.logger.Debug("user retrieved",
		"by", by,
		"user_id", user.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &user, nil
}

// CreateUser вставляет пользователя, если username свободен
func (s *UserStorage) CreateUser(ctx context.Context, user *domain.User) error {
	start := time.Now()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := s.db.NamedExecContext(ctx, insertUserIfAbsentQuery, user)
	if err != nil {
		s.logger.Error("failed to insert user", "username", user.Username, "error", err)
		return fmt.Errorf("insert user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user: rows affected: %w", err)
	}
	if affected == 0 {
		s.logger.Warn("username already taken", "username", user.Username)
		return domain.ErrUsernameTaken
	}

	s.logger.Info("user created",
		"user_id", user.ID,
		"username", user.Username,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// SaveUser вставляет или целиком заменяет запись по username одним запросом
func (s *UserStorage) SaveUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	start := time.Now()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query, args, err := sqlx.Named(upsertUserQuery, user)
	if err != nil {
		return nil, fmt.Errorf("save user: bind: %w", err)
	}

	var saved domain.User
	if err := s.db.GetContext(ctx, &saved, s.db.Rebind(query), args...); err != nil {
		s.logger.Error("failed to save user", "username", user.Username, "error", err)
		return nil, fmt.Errorf("ошибка при сохранении пользователя: %w", err)
	}

	s.logger.Info("user saved",
		"user_id", saved.ID,
		"username", saved.Username,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &saved, nil
}

// AssignResetToken записывает токен сброса пользователю
func (s *UserStorage) AssignResetToken(ctx context.Context, username, token string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET reset_token = $1, updated_at = $2 WHERE username = $3`,
		token, time.Now().UTC(), username,
	)
	if err != nil {
		s.logger.Error("failed to assign reset token", "username", username, "error", err)
		return fmt.Errorf("ошибка при сохранении токена сброса: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign reset token: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("assign reset token: user %q not found", username)
	}

	s.logger.Info("reset token assigned", "username", username)
	return nil
}

// ConsumeResetToken меняет пароль и гасит токен одним UPDATE ... RETURNING
func (s *UserStorage) ConsumeResetToken(ctx context.Context, token, newPasswordHash string) (*domain.User, error) {
	start := time.Now()

	var user domain.User
	err := s.db.GetContext(ctx, &user, consumeResetTokenQuery, newPasswordHash, time.Now().UTC(), token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("reset token not found or already used")
			return nil, nil
		}
		s.logger.Error("failed to consume reset token", "error", err)
		return nil, fmt.Errorf("ошибка при сбросе пароля: %w", err)
	}

	s.logger.Info("reset token consumed",
		"user_id", user.ID,
		"username", user.Username,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &user, nil
}
