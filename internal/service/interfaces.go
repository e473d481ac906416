package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/google/uuid"
)

// TeacherRepository хранилище учителей. Email передаются нормализованными.
// Find* возвращают nil без ошибки, если записи нет.
type TeacherRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.Teacher, error)
	FindByEmails(ctx context.Context, emails []string) ([]*model.Teacher, error)
	FindOrCreate(ctx context.Context, email string) (*model.Teacher, error)
	Count(ctx context.Context) (int, error)
}

// StudentRepository хранилище студентов
type StudentRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.Student, error)
	FindByEmails(ctx context.Context, emails []string) ([]*model.Student, error)
	FindOrCreate(ctx context.Context, email string) (*model.Student, error)
	Suspend(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int, error)
	CountSuspended(ctx context.Context) (int, error)
}

// RegistrationRepository хранилище связей учитель-студент
type RegistrationRepository interface {
	Link(ctx context.Context, teacherID uuid.UUID, studentIDs []uuid.UUID) error
	Unlink(ctx context.Context, teacherID, studentID uuid.UUID) (bool, error)
	CommonStudents(ctx context.Context, teacherIDs []uuid.UUID) ([]*model.Student, error)
	NotificationRecipients(ctx context.Context, teacherID uuid.UUID, mentionedIDs []uuid.UUID) ([]string, error)
	TeachersByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Teacher, error)
	Count(ctx context.Context) (int, error)
}

// Pinger проверка доступности хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatisticsCache кэш статистики. Get возвращает nil без ошибки при промахе.
type StatisticsCache interface {
	Get(ctx context.Context) (*model.Statistics, error)
	Set(ctx context.Context, stats *model.Statistics, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// ChangeNotifier получает сигнал после успешного изменения данных
type ChangeNotifier interface {
	Invalidate(ctx context.Context)
}
