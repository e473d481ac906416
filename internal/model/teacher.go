package model

import (
	"time"

	"github.com/google/uuid"
)

// Teacher represents a teacher identity keyed by normalized email
type Teacher struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
