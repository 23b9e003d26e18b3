// internal/domain/user.go
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gender — допустимые значения поля gender
type Gender string

const (
	GenderMale         Gender = "male"
	GenderFemale       Gender = "female"
	GenderOther        Gender = "other"
	GenderPreferNotSay Gender = "prefer_not_say"
)

// NormalizeGender приводит ввод к каноническому виду ("Male" -> "male").
// Проверку на допустимость значения делает слой usecase.
func NormalizeGender(raw string) Gender {
	return Gender(strings.ToLower(strings.TrimSpace(raw)))
}

// User представляет модель пользователя в системе.
// Соответствует таблице 'users' в базе данных.
// Необязательные поля — указатели: nil означает "не задано".
type User struct {
	ID           uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey"`
	Username     string    `json:"username" db:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" db:"password_hash" gorm:"not null"`
	Email        *string   `json:"email,omitempty" db:"email" gorm:"index"`
	Contact      *string   `json:"contact,omitempty" db:"contact"`
	Age          *int      `json:"age,omitempty" db:"age"`
	Height       *float64  `json:"height,omitempty" db:"height"`
	Weight       *float64  `json:"weight,omitempty" db:"weight"`
	Gender       *Gender   `json:"gender,omitempty" db:"gender"`
	ResetToken   *string   `json:"-" db:"reset_token" gorm:"uniqueIndex"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// HasResetToken — есть ли у пользователя незавершённый запрос на сброс пароля
func (u *User) HasResetToken() bool {
	return u.ResetToken != nil && *u.ResetToken != ""
}
