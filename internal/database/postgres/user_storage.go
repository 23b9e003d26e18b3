package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/AuthService/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserStorage реализует интерфейс ports.UserStorage с использованием GORM
type GormUserStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewGormUserStorage создает новый экземпляр GormUserStorage
func NewGormUserStorage(db *gorm.DB, logger *slog.Logger) *GormUserStorage {
	return &GormUserStorage{db: db, logger: logger}
}

func (s *GormUserStorage) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).Limit(1).Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("ошибка при проверке пользователя с GORM: %w", result.Error)
	}
	return count > 0, nil
}

func (s *GormUserStorage) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.first(s.db.WithContext(ctx).Where("username = ?", username))
}

func (s *GormUserStorage) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.first(s.db.WithContext(ctx).Where("email = ?", email).Order("created_at ASC"))
}

func (s *GormUserStorage) FindByResetToken(ctx context.Context, token string) (*domain.User, error) {
	return s.first(s.db.WithContext(ctx).Where("reset_token = ?", token))
}

func (s *GormUserStorage) first(q *gorm.DB) (*domain.User, error) {
	var user domain.User
	result := q.Take(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("failed to get user with GORM", "error", result.Error)
		return nil, fmt.Errorf("ошибка при получении пользователя с GORM: %w", result.Error)
	}
	return &user, nil
}

// CreateUser вставляет пользователя через INSERT ... ON CONFLICT (username) DO NOTHING
func (s *GormUserStorage) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(user)
	if result.Error != nil {
		s.logger.Error("failed to create user with GORM", "username", user.Username, "error", result.Error)
		return fmt.Errorf("ошибка при создании пользователя с GORM: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrUsernameTaken
	}

	s.logger.Info("user created", "user_id", user.ID, "username", user.Username)
	return nil
}

// SaveUser — upsert по username с заменой всех полей
func (s *GormUserStorage) SaveUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	saved := *user
	result := s.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "username"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"password_hash", "email", "contact", "age", "height",
					"weight", "gender", "reset_token", "updated_at",
				}),
			},
			clause.Returning{},
		).
		Create(&saved)
	if result.Error != nil {
		s.logger.Error("failed to save user with GORM", "username", user.Username, "error", result.Error)
		return nil, fmt.Errorf("ошибка при сохранении пользователя с GORM: %w", result.Error)
	}
	return &saved, nil
}

func (s *GormUserStorage) AssignResetToken(ctx context.Context, username, token string) error {
	result := s.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("username = ?", username).
		Updates(map[string]any{"reset_token": token, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("ошибка при сохранении токена сброса с GORM: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("assign reset token: user %q not found", username)
	}
	return nil
}

// ConsumeResetToken блокирует строку с токеном (SELECT ... FOR UPDATE) и в той же
// транзакции меняет пароль и очищает токен. Второй конкурент после разблокировки
// уже не найдёт токен.
func (s *GormUserStorage) ConsumeResetToken(ctx context.Context, token, newPasswordHash string) (*domain.User, error) {
	var consumed *domain.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reset_token = ?", token).
			Take(&user)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil
			}
			return result.Error
		}

		now := time.Now().UTC()
		result = tx.Model(&domain.User{}).
			Where("id = ? AND reset_token = ?", user.ID, token).
			Updates(map[string]any{
				"password_hash": newPasswordHash,
				"reset_token":   gorm.Expr("NULL"),
				"updated_at":    now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		user.PasswordHash = newPasswordHash
		user.ResetToken = nil
		user.UpdatedAt = now
		consumed = &user
		return nil
	})
	if err != nil {
		s.logger.Error("failed to consume reset token with GORM", "error", err)
		return nil, fmt.Errorf("ошибка при сбросе пароля с GORM: %w", err)
	}
	return consumed, nil
}
