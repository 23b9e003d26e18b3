// Package memory — хранилище пользователей в памяти процесса (STORE_DRIVER=memory, тесты).
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GoArmGo/AuthService/internal/domain"
	"github.com/google/uuid"
)

// UserStorage реализует ports.UserStorage на map под мьютексом.
// Наружу всегда отдаются копии, чтобы вызывающий не мог изменить запись в обход Save.
type UserStorage struct {
	mu      sync.RWMutex
	users   map[string]*domain.User // username -> user
	byToken map[string]string       // reset token -> username
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		users:   make(map[string]*domain.User),
		byToken: make(map[string]string),
	}
}

func (s *UserStorage) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok, nil
}

func (s *UserStorage) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[username]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (s *UserStorage) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.User
	for _, u := range s.users {
		if u.Email == nil || *u.Email != email {
			continue
		}
		if found == nil || u.CreatedAt.Before(found.CreatedAt) {
			found = u
		}
	}
	if found == nil {
		return nil, nil
	}
	return cloneUser(found), nil
}

func (s *UserStorage) FindByResetToken(_ context.Context, token string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if username, ok := s.byToken[token]; ok {
		return cloneUser(s.users[username]), nil
	}
	return nil, nil
}

func (s *UserStorage) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return domain.ErrUsernameTaken
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	s.put(cloneUser(user))
	return nil
}

func (s *UserStorage) SaveUser(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	saved := cloneUser(user)
	if existing, ok := s.users[user.Username]; ok {
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
		s.dropToken(existing)
	} else {
		if saved.ID == uuid.Nil {
			saved.ID = uuid.New()
		}
		if saved.CreatedAt.IsZero() {
			saved.CreatedAt = now
		}
	}
	saved.UpdatedAt = now

	s.put(saved)
	return cloneUser(saved), nil
}

func (s *UserStorage) AssignResetToken(_ context.Context, username, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return fmt.Errorf("assign reset token: user %q not found", username)
	}

	updated := cloneUser(u)
	s.dropToken(u)
	updated.ResetToken = &token
	updated.UpdatedAt = time.Now().UTC()
	s.put(updated)
	return nil
}

func (s *UserStorage) ConsumeResetToken(_ context.Context, token, newPasswordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.byToken[token]
	if !ok {
		return nil, nil
	}

	updated := cloneUser(s.users[username])
	delete(s.byToken, token)
	updated.PasswordHash = newPasswordHash
	updated.ResetToken = nil
	updated.UpdatedAt = time.Now().UTC()
	s.put(updated)
	return cloneUser(updated), nil
}

// put заменяет запись целиком; вызывается под s.mu.Lock
func (s *UserStorage) put(u *domain.User) {
	s.users[u.Username] = u
	if u.HasResetToken() {
		s.byToken[*u.ResetToken] = u.Username
	}
}

func (s *UserStorage) dropToken(u *domain.User) {
	if u.HasResetToken() {
		delete(s.byToken, *u.ResetToken)
	}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Email = clonePtr(u.Email)
	c.Contact = clonePtr(u.Contact)
	c.Age = clonePtr(u.Age)
	c.Height = clonePtr(u.Height)
	c.Weight = clonePtr(u.Weight)
	c.Gender = clonePtr(u.Gender)
	c.ResetToken = clonePtr(u.ResetToken)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
