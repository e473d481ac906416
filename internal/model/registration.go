package model

import (
	"time"

	"github.com/google/uuid"
)

// Registration is a teacher-student link. At most one exists per pair.
type Registration struct {
	TeacherID uuid.UUID `json:"teacher_id"`
	StudentID uuid.UUID `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}
