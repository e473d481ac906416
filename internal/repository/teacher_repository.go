package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/Freeeeeet/classroom_api/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TeacherRepository хранит учителей. Все email должны быть уже нормализованы.
type TeacherRepository struct {
	*base.Repository
}

func NewTeacherRepository(pool *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{Repository: base.NewRepository(pool)}
}

// FindByEmail получает учителя по email, nil если не найден
func (r *TeacherRepository) FindByEmail(ctx context.Context, email string) (*model.Teacher, error) {
	query := `
		SELECT id, email, created_at
		FROM teachers
		WHERE email = $1
	`

	var teacher model.Teacher
	err := r.QueryRow(ctx, query, email).Scan(&teacher.ID, &teacher.Email, &teacher.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find teacher by email: %w", err)
	}

	return &teacher, nil
}

// FindByEmails получает существующих учителей из списка email
func (r *TeacherRepository) FindByEmails(ctx context.Context, emails []string) ([]*model.Teacher, error) {
	if len(emails) == 0 {
		return []*model.Teacher{}, nil
	}

	query := `
		SELECT id, email, created_at
		FROM teachers
		WHERE email = ANY($1)
		ORDER BY email
	`

	rows, err := r.Query(ctx, query, emails)
	if err != nil {
		return nil, fmt.Errorf("find teachers by emails: %w", err)
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

// Create создаёт учителя. При гонке на email возвращает ErrAlreadyExists.
func (r *TeacherRepository) Create(ctx context.Context, email string) (*model.Teacher, error) {
	query := `
		INSERT INTO teachers (id, email, created_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	teacher := &model.Teacher{
		ID:    uuid.New(),
		Email: email,
	}

	err := r.QueryRow(ctx, query, teacher.ID, teacher.Email, time.Now().UTC()).Scan(&teacher.CreatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create teacher %s: %w", email, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create teacher: %w", err)
	}

	return teacher, nil
}

// FindOrCreate находит учителя или создаёт его
func (r *TeacherRepository) FindOrCreate(ctx context.Context, email string) (*model.Teacher, error) {
	return findOrCreate(ctx, email, r.FindByEmail, r.Create)
}

// Count возвращает количество учителей
func (r *TeacherRepository) Count(ctx context.Context) (int, error) {
	count, err := r.Repository.Count(ctx, `SELECT COUNT(*) FROM teachers`)
	if err != nil {
		return 0, fmt.Errorf("count teachers: %w", err)
	}
	return count, nil
}
