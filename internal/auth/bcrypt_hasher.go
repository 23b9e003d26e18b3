// Package auth содержит реализации хэширования паролей и генерации токенов сброса.
package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// bcrypt учитывает только первые 72 байта пароля
	bcryptMaxPasswordLen = 72

	// prehashMarker отделяет сжатые пароли от обычных:
	// короткий пароль без этого префикса не совпадёт ни с одним сжатым
	prehashMarker = "$sha256$"
)

// BcryptHasher реализует ports.PasswordHasher на bcrypt.
// Соль генерируется bcrypt на каждый вызов Hash.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher создаёт хэшер; cost вне допустимого диапазона заменяется на bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash возвращает солёный bcrypt-хэш пароля.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prepare(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

// Verify проверяет пароль по сохранённому хэшу. Битый хэш — просто false.
func (h *BcryptHasher) Verify(plaintext, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(secret), prepare(plaintext)) == nil
}

// prepare сжимает длинные пароли через SHA-256, чтобы bcrypt не отрезал хвост
// и не возвращал ErrPasswordTooLong. Пароли, начинающиеся с prehashMarker,
// сжимаются всегда.
func prepare(plaintext string) []byte {
	if len(plaintext) <= bcryptMaxPasswordLen && !strings.HasPrefix(plaintext, prehashMarker) {
		return []byte(plaintext)
	}
	sum := sha256.Sum256([]byte(plaintext))
	return []byte(prehashMarker + base64.StdEncoding.EncodeToString(sum[:]))
}
