package model

import (
	"time"

	"github.com/google/uuid"
)

// Student represents a student identity keyed by normalized email
type Student struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	IsSuspended bool      `json:"is_suspended"` // только suspend переводит в true
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Emails возвращает email-адреса студентов в исходном порядке
func Emails(students []*Student) []string {
	emails := make([]string, 0, len(students))
	for _, student := range students {
		emails = append(emails, student.Email)
	}
	return emails
}
