package ports

import (
	"context"
	"io"

	"github.com/GoArmGo/AuthService/internal/domain"
)

// UserStorage определяет методы для взаимодействия с хранилищем пользователей.
// Отсутствие записи — это (nil, nil), а не ошибка; любая ошибка означает сбой хранилища.
type UserStorage interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByResetToken(ctx context.Context, token string) (*domain.User, error)

	// SaveUser вставляет новую запись или целиком заменяет существующую по username.
	SaveUser(ctx context.Context, user *domain.User) (*domain.User, error)

	// CreateUser вставляет запись, только если username свободен,
	// иначе возвращает domain.ErrUsernameTaken.
	CreateUser(ctx context.Context, user *domain.User) error

	// AssignResetToken записывает токен сброса, не трогая остальные поля.
	AssignResetToken(ctx context.Context, username, token string) error

	// ConsumeResetToken атомарно меняет хэш пароля и очищает токен,
	// только если токен всё ещё совпадает. (nil, nil) — токен не найден.
	ConsumeResetToken(ctx context.Context, token, newPasswordHash string) (*domain.User, error)
}

// FileStorage определяет интерфейс для работы с файловым хранилищем (AWS S3, MinIO)
type FileStorage interface {
	// UploadFile загружает файл в хранилище и возвращает его URL.
	UploadFile(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
}

// PasswordHasher — одностороннее преобразование пароля и проверка кандидата.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify сравнивает за время, не зависящее от места расхождения.
	Verify(plaintext, secret string) bool
}

// TokenGenerator выдаёт непрозрачные одноразовые токены сброса пароля.
type TokenGenerator interface {
	NewToken() (string, error)
}
