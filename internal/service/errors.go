package service

import (
	"errors"
	"fmt"
	"strings"
)

// Бизнес-ошибки. Ошибки хранилища возвращаются обёрнутыми, но не подменяются.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError перечисляет все нормализованные email, которых нет в хранилище
type NotFoundError struct {
	Entity string // "teachers", "student"
	Emails []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", capitalize(e.Entity), strings.Join(e.Emails, ", "))
}

// Is позволяет проверять errors.Is(err, ErrNotFound)
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func teachersNotFound(emails []string) error {
	return &NotFoundError{Entity: "teachers", Emails: emails}
}

func teacherNotFound(email string) error {
	return &NotFoundError{Entity: "teacher", Emails: []string{email}}
}

func studentNotFound(email string) error {
	return &NotFoundError{Entity: "student", Emails: []string{email}}
}
