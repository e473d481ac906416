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

const studentColumns = `id, email, is_suspended, created_at, updated_at`

// StudentRepository хранит студентов и флаг блокировки. Все email должны быть уже нормализованы.
type StudentRepository struct {
	*base.Repository
}

func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{Repository: base.NewRepository(pool)}
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	var student model.Student
	err := row.Scan(
		&student.ID,
		&student.Email,
		&student.IsSuspended,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func collectStudents(rows pgx.Rows) ([]*model.Student, error) {
	defer rows.Close()

	students := []*model.Student{}
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	return students, nil
}

// FindByEmail получает студента по email, nil если не найден
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE email = $1`

	student, err := scanStudent(r.QueryRow(ctx, query, email))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find student by email: %w", err)
	}

	return student, nil
}

// FindByEmails получает существующих студентов из списка email
func (r *StudentRepository) FindByEmails(ctx context.Context, emails []string) ([]*model.Student, error) {
	if len(emails) == 0 {
		return []*model.Student{}, nil
	}

	query := `SELECT ` + studentColumns + ` FROM students WHERE email = ANY($1) ORDER BY email`

	rows, err := r.Query(ctx, query, emails)
	if err != nil {
		return nil, fmt.Errorf("find students by emails: %w", err)
	}

	return collectStudents(rows)
}

// Create создаёт студента (не заблокирован). При гонке на email возвращает ErrAlreadyExists.
func (r *StudentRepository) Create(ctx context.Context, email string) (*model.Student, error) {
	query := `
		INSERT INTO students (id, email, is_suspended, created_at, updated_at)
		VALUES ($1, $2, FALSE, $3, $3)
		RETURNING created_at, updated_at
	`

	student := &model.Student{
		ID:    uuid.New(),
		Email: email,
	}

	err := r.QueryRow(ctx, query, student.ID, student.Email, time.Now().UTC()).Scan(&student.CreatedAt, &student.UpdatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create student %s: %w", email, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create student: %w", err)
	}

	return student, nil
}

// FindOrCreate находит студента или создаёт его
func (r *StudentRepository) FindOrCreate(ctx context.Context, email string) (*model.Student, error) {
	return findOrCreate(ctx, email, r.FindByEmail, r.Create)
}

// Suspend блокирует студента. true если строка найдена, даже если уже был заблокирован.
func (r *StudentRepository) Suspend(ctx context.Context, email string) (bool, error) {
	return r.setSuspended(ctx, email, true)
}

// Unsuspend снимает блокировку (для тестовых фикстур)
func (r *StudentRepository) Unsuspend(ctx context.Context, email string) (bool, error) {
	return r.setSuspended(ctx, email, false)
}

func (r *StudentRepository) setSuspended(ctx context.Context, email string, suspended bool) (bool, error) {
	query := `
		UPDATE students
		SET is_suspended = $1, updated_at = now()
		WHERE email = $2
	`

	affected, err := r.ExecAffected(ctx, query, suspended, email)
	if err != nil {
		return false, fmt.Errorf("update student suspension: %w", err)
	}

	return affected > 0, nil
}

// Count возвращает количество студентов
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	count, err := r.Repository.Count(ctx, `SELECT COUNT(*) FROM students`)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// CountSuspended возвращает количество заблокированных студентов
func (r *StudentRepository) CountSuspended(ctx context.Context) (int, error) {
	count, err := r.Repository.Count(ctx, `SELECT COUNT(*) FROM students WHERE is_suspended`)
	if err != nil {
		return 0, fmt.Errorf("count suspended students: %w", err)
	}
	return count, nil
}
