package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/Freeeeeet/classroom_api/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistrationRepository хранит связи учитель-студент
type RegistrationRepository struct {
	*base.Repository
}

func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{Repository: base.NewRepository(pool)}
}

// Link привязывает студентов к учителю одной транзакцией.
// Уже существующие пары пропускаются, записывается только разница.
// Строка учителя блокируется, поэтому параллельные Link для одного учителя выполняются по очереди.
func (r *RegistrationRepository) Link(ctx context.Context, teacherID uuid.UUID, studentIDs []uuid.UUID) error {
	studentIDs = uniqueIDs(studentIDs)
	if len(studentIDs) == 0 {
		return nil
	}

	return r.WithTx(ctx, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM teachers WHERE id = $1 FOR UPDATE`, teacherID).Scan(&locked)
		if err != nil {
			return fmt.Errorf("lock teacher %s: %w", teacherID, err)
		}

		existing, err := linkedStudentIDs(ctx, tx, teacherID, studentIDs)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		rows := make([][]any, 0, len(studentIDs))
		for _, studentID := range studentIDs {
			if _, ok := existing[studentID]; ok {
				continue
			}
			rows = append(rows, []any{teacherID, studentID, now})
		}

		if len(rows) == 0 {
			return nil
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"teacher_students"},
			[]string{"teacher_id", "student_id", "created_at"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("insert registrations: %w", err)
		}

		return nil
	})
}

func linkedStudentIDs(ctx context.Context, tx pgx.Tx, teacherID uuid.UUID, studentIDs []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	query := `
		SELECT student_id
		FROM teacher_students
		WHERE teacher_id = $1 AND student_id = ANY($2)
	`

	rows, err := tx.Query(ctx, query, teacherID, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("get existing registrations: %w", err)
	}
	defer rows.Close()

	existing := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var studentID uuid.UUID
		if err := rows.Scan(&studentID); err != nil {
			return nil, fmt.Errorf("scan student id: %w", err)
		}
		existing[studentID] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate student ids: %w", err)
	}

	return existing, nil
}

// Unlink удаляет одну связь. false если связи не было.
func (r *RegistrationRepository) Unlink(ctx context.Context, teacherID, studentID uuid.UUID) (bool, error) {
	query := `
		DELETE FROM teacher_students
		WHERE teacher_id = $1 AND student_id = $2
	`

	affected, err := r.ExecAffected(ctx, query, teacherID, studentID)
	if err != nil {
		return false, fmt.Errorf("unlink student: %w", err)
	}

	return affected > 0, nil
}

// CommonStudents возвращает студентов, привязанных к каждому из учителей, по email
func (r *RegistrationRepository) CommonStudents(ctx context.Context, teacherIDs []uuid.UUID) ([]*model.Student, error) {
	teacherIDs = uniqueIDs(teacherIDs)
	if len(teacherIDs) == 0 {
		return []*model.Student{}, nil
	}

	var (
		rows pgx.Rows
		err  error
	)

	if len(teacherIDs) == 1 {
		query := `
			SELECT s.id, s.email, s.is_suspended, s.created_at, s.updated_at
			FROM students s
			INNER JOIN teacher_students ts ON ts.student_id = s.id
			WHERE ts.teacher_id = $1
			ORDER BY s.email
		`
		rows, err = r.Query(ctx, query, teacherIDs[0])
	} else {
		// студент входит в пересечение, если связан со всеми N учителями
		query := `
			SELECT s.id, s.email, s.is_suspended, s.created_at, s.updated_at
			FROM students s
			INNER JOIN teacher_students ts ON ts.student_id = s.id
			WHERE ts.teacher_id = ANY($1)
			GROUP BY s.id, s.email, s.is_suspended, s.created_at, s.updated_at
			HAVING COUNT(DISTINCT ts.teacher_id) = $2
			ORDER BY s.email
		`
		rows, err = r.Query(ctx, query, teacherIDs, len(teacherIDs))
	}

	if err != nil {
		return nil, fmt.Errorf("get common students: %w", err)
	}

	return collectStudents(rows)
}

// NotificationRecipients возвращает email незаблокированных студентов,
// которые привязаны к учителю или упомянуты
func (r *RegistrationRepository) NotificationRecipients(ctx context.Context, teacherID uuid.UUID, mentionedIDs []uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT s.email
		FROM students s
		WHERE NOT s.is_suspended AND (
			EXISTS (
				SELECT 1 FROM teacher_students ts
				WHERE ts.student_id = s.id AND ts.teacher_id = $1
			)
			OR s.id = ANY($2)
		)
		ORDER BY s.email
	`

	mentionedIDs = uniqueIDs(mentionedIDs)

	rows, err := r.Query(ctx, query, teacherID, mentionedIDs)
	if err != nil {
		return nil, fmt.Errorf("get notification recipients: %w", err)
	}
	defer rows.Close()

	recipients := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, email)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}

	return recipients, nil
}

// TeachersByStudent возвращает учителей студента по email
func (r *RegistrationRepository) TeachersByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Teacher, error) {
	query := `
		SELECT t.id, t.email, t.created_at
		FROM teachers t
		INNER JOIN teacher_students ts ON ts.teacher_id = t.id
		WHERE ts.student_id = $1
		ORDER BY t.email
	`

	rows, err := r.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student teachers: %w", err)
	}
	defer rows.Close()

	teachers := []*model.Teacher{}
	for rows.Next() {
		var teacher model.Teacher
		if err := rows.Scan(&teacher.ID, &teacher.Email, &teacher.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		teachers = append(teachers, &teacher)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teachers: %w", err)
	}

	return teachers, nil
}

// Count возвращает количество связей
func (r *RegistrationRepository) Count(ctx context.Context) (int, error) {
	count, err := r.Repository.Count(ctx, `SELECT COUNT(*) FROM teacher_students`)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
