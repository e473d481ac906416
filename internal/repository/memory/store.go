// Package memory реализует хранилище учителей, студентов и связей в памяти процесса.
// Используется в тестах и при STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/Freeeeeet/classroom_api/internal/repository"
	"github.com/google/uuid"
)

// Store общее состояние. Репозитории, полученные из одного Store, видят одни и те же данные.
type Store struct {
	mu sync.RWMutex

	teachers     map[string]*model.Teacher // по email
	students     map[string]*model.Student // по email
	studentsByID map[uuid.UUID]*model.Student
	teachersByID map[uuid.UUID]*model.Teacher
	studentsOf   map[uuid.UUID]map[uuid.UUID]*model.Registration // teacher -> students
	teachersOf   map[uuid.UUID]map[uuid.UUID]struct{}            // student -> teachers
	now          func() time.Time
}

func NewStore() *Store {
	return &Store{
		teachers:     make(map[string]*model.Teacher),
		students:     make(map[string]*model.Student),
		studentsByID: make(map[uuid.UUID]*model.Student),
		teachersByID: make(map[uuid.UUID]*model.Teacher),
		studentsOf:   make(map[uuid.UUID]map[uuid.UUID]*model.Registration),
		teachersOf:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Teachers возвращает репозиторий учителей
func (s *Store) Teachers() *TeacherRepository {
	return &TeacherRepository{store: s}
}

// Students возвращает репозиторий студентов
func (s *Store) Students() *StudentRepository {
	return &StudentRepository{store: s}
}

// Registrations возвращает репозиторий связей
func (s *Store) Registrations() *RegistrationRepository {
	return &RegistrationRepository{store: s}
}

// Ping всегда успешен, если контекст не отменён
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func copyTeacher(t *model.Teacher) *model.Teacher {
	c := *t
	return &c
}

func copyStudent(st *model.Student) *model.Student {
	c := *st
	return &c
}

func sortStudents(students []*model.Student) {
	sort.Slice(students, func(i, j int) bool { return students[i].Email < students[j].Email })
}

// TeacherRepository учителя в памяти
type TeacherRepository struct {
	store *Store
}

func (r *TeacherRepository) FindByEmail(ctx context.Context, email string) (*model.Teacher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	teacher, ok := r.store.teachers[email]
	if !ok {
		return nil, nil
	}
	return copyTeacher(teacher), nil
}

func (r *TeacherRepository) FindByEmails(ctx context.Context, emails []string) ([]*model.Teacher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	teachers := []*model.Teacher{}
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		if teacher, ok := r.store.teachers[email]; ok {
			teachers = append(teachers, copyTeacher(teacher))
		}
	}

	sort.Slice(teachers, func(i, j int) bool { return teachers[i].Email < teachers[j].Email })
	return teachers, nil
}

func (r *TeacherRepository) Create(ctx context.Context, email string) (*model.Teacher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.teachers[email]; ok {
		return nil, fmt.Errorf("create teacher %s: %w", email, repository.ErrAlreadyExists)
	}

	teacher := &model.Teacher{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: r.store.now(),
	}
	r.store.teachers[email] = teacher
	r.store.teachersByID[teacher.ID] = teacher

	return copyTeacher(teacher), nil
}

// FindOrCreate атомарен: проверка и вставка под одной блокировкой
func (r *TeacherRepository) FindOrCreate(ctx context.Context, email string) (*model.Teacher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if teacher, ok := r.store.teachers[email]; ok {
		return copyTeacher(teacher), nil
	}

	teacher := &model.Teacher{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: r.store.now(),
	}
	r.store.teachers[email] = teacher
	r.store.teachersByID[teacher.ID] = teacher

	return copyTeacher(teacher), nil
}

func (r *TeacherRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.teachers), nil
}

// StudentRepository студенты в памяти
type StudentRepository struct {
	store *Store
}

func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*model.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	student, ok := r.store.students[email]
	if !ok {
		return nil, nil
	}
	return copyStudent(student), nil
}

func (r *StudentRepository) FindByEmails(ctx context.Context, emails []string) ([]*model.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	students := []*model.Student{}
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		if student, ok := r.store.students[email]; ok {
			students = append(students, copyStudent(student))
		}
	}

	sortStudents(students)
	return students, nil
}

func (r *StudentRepository) Create(ctx context.Context, email string) (*model.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.students[email]; ok {
		return nil, fmt.Errorf("create student %s: %w", email, repository.ErrAlreadyExists)
	}
	return copyStudent(r.store.insertStudent(email)), nil
}

// FindOrCreate атомарен: проверка и вставка под одной блокировкой
func (r *StudentRepository) FindOrCreate(ctx context.Context, email string) (*model.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if student, ok := r.store.students[email]; ok {
		return copyStudent(student), nil
	}
	return copyStudent(r.store.insertStudent(email)), nil
}

func (s *Store) insertStudent(email string) *model.Student {
	now := s.now()
	student := &model.Student{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.students[email] = student
	s.studentsByID[student.ID] = student
	return student
}

func (r *StudentRepository) Suspend(ctx context.Context, email string) (bool, error) {
	return r.setSuspended(ctx, email, true)
}

// Unsuspend снимает блокировку (для тестовых фикстур)
func (r *StudentRepository) Unsuspend(ctx context.Context, email string) (bool, error) {
	return r.setSuspended(ctx, email, false)
}

func (r *StudentRepository) setSuspended(ctx context.Context, email string, suspended bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	student, ok := r.store.students[email]
	if !ok {
		return false, nil
	}
	student.IsSuspended = suspended
	student.UpdatedAt = r.store.now()
	return true, nil
}

func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.students), nil
}

func (r *StudentRepository) CountSuspended(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, student := range r.store.students {
		if student.IsSuspended {
			count++
		}
	}
	return count, nil
}
