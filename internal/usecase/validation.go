package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/GoArmGo/AuthService/internal/domain"
	"github.com/go-playground/validator/v10"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

const (
	msgCredentialsRequired = "Username and password are required"
	msgUsernameTooShort    = "Username must be at least 3 characters"
	msgPasswordTooShort    = "Password must be at least 6 characters"
	msgEmailRequired       = "Email is required"
	msgTokenRequired       = "Token and new password are required"

	msgInvalidEmail   = "Invalid email format"
	msgInvalidContact = "Contact must be 7-15 digits"
	msgInvalidAge     = "Age must be between 1 and 120"
	msgInvalidHeight  = "Height must be greater than 0 and at most 300 cm"
	msgInvalidWeight  = "Weight must be greater than 0 and at most 500 kg"
	msgInvalidGender  = "Gender must be one of: male, female, other, prefer_not_say"
)

// local@domain.tld без пробелов; строже RFC не проверяем
var simpleEmailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// fieldValidator проверяет необязательные поля профиля тегами go-playground/validator.
type fieldValidator struct {
	v *validator.Validate
}

func newFieldValidator() *fieldValidator {
	v := validator.New()
	// regexp компилируется один раз выше, ошибка регистрации тут невозможна
	_ = v.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return simpleEmailRegex.MatchString(fl.Field().String())
	})
	return &fieldValidator{v: v}
}

// optionalProfile — нормализованные необязательные поля.
type optionalProfile struct {
	Email   *string
	Contact *string
	Age     *int
	Height  *float64
	Weight  *float64
	Gender  *domain.Gender
}

// validateCredentials — шаги 1-3 регистрации. Возвращает обрезанный username.
func validateCredentials(username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", domain.NewValidationError(msgCredentialsRequired)
	}
	username = strings.TrimSpace(username)
	if utf8.RuneCountInString(username) < minUsernameLen {
		return "", domain.NewValidationError(msgUsernameTooShort)
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}
	return username, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return domain.NewValidationError(msgPasswordTooShort)
	}
	return nil
}

// validateProfile проверяет поля в порядке email, contact, age, height, weight, gender;
// первая ошибка выигрывает.
func (fv *fieldValidator) validateProfile(in RegisterInput) (optionalProfile, error) {
	p := optionalProfile{
		Email:   trimmedOrNil(in.Email),
		Contact: trimmedOrNil(in.Contact),
		Age:     in.Age,
		Height:  in.Height,
		Weight:  in.Weight,
	}
	if g := trimmedOrNil(in.Gender); g != nil {
		gender := domain.NormalizeGender(*g)
		p.Gender = &gender
	}

	checks := []struct {
		present bool
		value   func() any
		tag     string
		message string
	}{
		{p.Email != nil, func() any { return *p.Email }, "simple_email", msgInvalidEmail},
		{p.Contact != nil, func() any { return *p.Contact }, "number,min=7,max=15", msgInvalidContact},
		{p.Age != nil, func() any { return *p.Age }, "min=1,max=120", msgInvalidAge},
		{p.Height != nil, func() any { return *p.Height }, "gt=0,lte=300", msgInvalidHeight},
		{p.Weight != nil, func() any { return *p.Weight }, "gt=0,lte=500", msgInvalidWeight},
		{p.Gender != nil, func() any { return string(*p.Gender) }, "oneof=male female other prefer_not_say", msgInvalidGender},
	}

	for _, c := range checks {
		if !c.present {
			continue
		}
		if err := fv.v.Var(c.value(), c.tag); err != nil {
			return optionalProfile{}, domain.NewValidationError(c.message)
		}
	}
	return p, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
