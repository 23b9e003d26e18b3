package domain

import (
	"errors"
	"fmt"
)

// ErrUsernameTaken возвращается хранилищем, когда вставка упёрлась в уникальность username.
var ErrUsernameTaken = errors.New("username already taken")

// ErrorKind — категория ошибки операций с аккаунтом
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindInvalidCredentials
	KindStoreFailure
	KindNotificationFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindStoreFailure:
		return "store_failure"
	case KindNotificationFailure:
		return "notification_failure"
	default:
		return "unknown"
	}
}

// AccountError — ошибка операции с аккаунтом.
// Message показывается клиенту как есть, Err — внутренняя причина (только в логи).
type AccountError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AccountError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AccountError) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по категории, чтобы работал errors.Is(err, domain.ErrNotFound).
func (e *AccountError) Is(target error) bool {
	t, ok := target.(*AccountError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Сентинелы для errors.Is
var (
	ErrValidation          = &AccountError{Kind: KindValidation}
	ErrConflict            = &AccountError{Kind: KindConflict}
	ErrNotFound            = &AccountError{Kind: KindNotFound}
	ErrInvalidCredentials  = &AccountError{Kind: KindInvalidCredentials}
	ErrStoreFailure        = &AccountError{Kind: KindStoreFailure}
	ErrNotificationFailure = &AccountError{Kind: KindNotificationFailure}
)

func NewValidationError(message string) error {
	return &AccountError{Kind: KindValidation, Message: message}
}

func NewConflictError(message string) error {
	return &AccountError{Kind: KindConflict, Message: message}
}

func NewNotFoundError(message string) error {
	return &AccountError{Kind: KindNotFound, Message: message}
}

func NewInvalidCredentialsError() error {
	return &AccountError{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
}

func NewStoreFailure(message string, err error) error {
	return &AccountError{Kind: KindStoreFailure, Message: message, Err: err}
}

func NewNotificationFailure(message string, err error) error {
	return &AccountError{Kind: KindNotificationFailure, Message: message, Err: err}
}

// KindOf достаёт категорию из цепочки ошибок; KindUnknown для посторонних ошибок.
func KindOf(err error) ErrorKind {
	var accErr *AccountError
	if errors.As(err, &accErr) {
		return accErr.Kind
	}
	return KindUnknown
}

// MessageOf возвращает текст для клиента, если он есть.
func MessageOf(err error) string {
	var accErr *AccountError
	if errors.As(err, &accErr) {
		return accErr.Message
	}
	return ""
}
