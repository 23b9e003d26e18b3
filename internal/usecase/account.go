package usecase

import (
	"context"

	"github.com/GoArmGo/AuthService/internal/domain"
)

// RegisterInput — данные регистрации. Из запроса берутся только эти поля,
// всё остальное игнорируется. Пустая строка в необязательном поле = поле не задано.
type RegisterInput struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Email    *string  `json:"email,omitempty"`
	Contact  *string  `json:"contact,omitempty"`
	Age      *int     `json:"age,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Gender   *string  `json:"gender,omitempty"`
}

// AccountUseCase определяет интерфейс бизнес-логики жизненного цикла учётных данных.
// Все ошибки — *domain.AccountError; категорию можно проверить через errors.Is(err, domain.ErrNotFound) и т.п.
type AccountUseCase interface {
	// Register создаёт пользователя. Повторная регистрация того же username — KindConflict.
	Register(ctx context.Context, in RegisterInput) error

	// Authenticate проверяет пару username/password. Неизвестный пользователь и неверный пароль
	// дают одну и ту же ошибку KindInvalidCredentials.
	Authenticate(ctx context.Context, username, password string) error

	// RequestPasswordReset выдаёт одноразовый токен и отправляет письмо со ссылкой.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword меняет пароль по токену и гасит токен.
	ResetPassword(ctx context.Context, token, newPassword string) error

	// GetUserByUsername возвращает запись пользователя (секретные поля не сериализуются).
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}
