package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/google/uuid"
)

// RegistrationRepository связи учитель-студент в памяти
type RegistrationRepository struct {
	store *Store
}

// Link записывает недостающие пары. Проверка ссылок выполняется до записи,
// поэтому при ошибке ни одна пара не появляется.
func (r *RegistrationRepository) Link(ctx context.Context, teacherID uuid.UUID, studentIDs []uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(studentIDs) == 0 {
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.teachersByID[teacherID]; !ok {
		return fmt.Errorf("link students: teacher %s does not exist", teacherID)
	}
	for _, studentID := range studentIDs {
		if _, ok := r.store.studentsByID[studentID]; !ok {
			return fmt.Errorf("link students: student %s does not exist", studentID)
		}
	}

	linked, ok := r.store.studentsOf[teacherID]
	if !ok {
		linked = make(map[uuid.UUID]*model.Registration)
		r.store.studentsOf[teacherID] = linked
	}

	now := r.store.now()
	for _, studentID := range studentIDs {
		if _, exists := linked[studentID]; exists {
			continue
		}
		linked[studentID] = &model.Registration{
			TeacherID: teacherID,
			StudentID: studentID,
			CreatedAt: now,
		}

		teachers, ok := r.store.teachersOf[studentID]
		if !ok {
			teachers = make(map[uuid.UUID]struct{})
			r.store.teachersOf[studentID] = teachers
		}
		teachers[teacherID] = struct{}{}
	}

	return nil
}

func (r *RegistrationRepository) Unlink(ctx context.Context, teacherID, studentID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	linked := r.store.studentsOf[teacherID]
	if _, ok := linked[studentID]; !ok {
		return false, nil
	}
	delete(linked, studentID)
	delete(r.store.teachersOf[studentID], teacherID)
	return true, nil
}

// CommonStudents пересекает множества студентов каждого учителя
func (r *RegistrationRepository) CommonStudents(ctx context.Context, teacherIDs []uuid.UUID) ([]*model.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(teacherIDs) == 0 {
		return []*model.Student{}, nil
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	sets := make([]map[uuid.UUID]*model.Registration, 0, len(teacherIDs))
	for _, teacherID := range teacherIDs {
		sets = append(sets, r.store.studentsOf[teacherID])
	}
	// начинаем с наименьшего множества
	sort.Slice(sets, func(i, j int) bool { return len(sets[i]) < len(sets[j]) })

	students := []*model.Student{}
	for studentID := range sets[0] {
		common := true
		for _, set := range sets[1:] {
			if _, ok := set[studentID]; !ok {
				common = false
				break
			}
		}
		if common {
			students = append(students, copyStudent(r.store.studentsByID[studentID]))
		}
	}

	sortStudents(students)
	return students, nil
}

// NotificationRecipients (зарегистрированные ∪ упомянутые) − заблокированные
func (r *RegistrationRepository) NotificationRecipients(ctx context.Context, teacherID uuid.UUID, mentionedIDs []uuid.UUID) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	candidates := make(map[uuid.UUID]struct{})
	for studentID := range r.store.studentsOf[teacherID] {
		candidates[studentID] = struct{}{}
	}
	for _, studentID := range mentionedIDs {
		candidates[studentID] = struct{}{}
	}

	recipients := []string{}
	for studentID := range candidates {
		student, ok := r.store.studentsByID[studentID]
		if !ok || student.IsSuspended {
			continue
		}
		recipients = append(recipients, student.Email)
	}

	sort.Strings(recipients)
	return recipients, nil
}

func (r *RegistrationRepository) TeachersByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Teacher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	teachers := []*model.Teacher{}
	for teacherID := range r.store.teachersOf[studentID] {
		teachers = append(teachers, copyTeacher(r.store.teachersByID[teacherID]))
	}

	sort.Slice(teachers, func(i, j int) bool { return teachers[i].Email < teachers[j].Email })
	return teachers, nil
}

func (r *RegistrationRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, linked := range r.store.studentsOf {
		count += len(linked)
	}
	return count, nil
}
