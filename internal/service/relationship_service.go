package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Freeeeeet/classroom_api/internal/mention"
	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxParallelResolve ограничивает параллельные lookup-or-create при регистрации
const maxParallelResolve = 8

type RelationshipService struct {
	teacherRepo      TeacherRepository
	studentRepo      StudentRepository
	registrationRepo RegistrationRepository
	notifier         ChangeNotifier
	logger           *zap.Logger
}

// NewRelationshipService создаёт сервис. notifier может быть nil.
func NewRelationshipService(
	teacherRepo TeacherRepository,
	studentRepo StudentRepository,
	registrationRepo RegistrationRepository,
	notifier ChangeNotifier,
	logger *zap.Logger,
) *RelationshipService {
	return &RelationshipService{
		teacherRepo:      teacherRepo,
		studentRepo:      studentRepo,
		registrationRepo: registrationRepo,
		notifier:         notifier,
		logger:           logger,
	}
}

// Register привязывает студентов к учителю, создавая недостающих учителя и студентов
func (s *RelationshipService) Register(ctx context.Context, teacherEmail string, studentEmails []string) error {
	teacherEmail = NormalizeEmail(teacherEmail)
	studentEmails = NormalizeEmails(studentEmails)

	teacher, err := s.teacherRepo.FindOrCreate(ctx, teacherEmail)
	if err != nil {
		return fmt.Errorf("find or create teacher: %w", err)
	}

	studentIDs, err := s.resolveStudents(ctx, studentEmails)
	if err != nil {
		return err
	}

	if err := s.registrationRepo.Link(ctx, teacher.ID, studentIDs); err != nil {
		return fmt.Errorf("register students: %w", err)
	}

	s.logger.Info("Students registered",
		zap.String("teacher", teacherEmail),
		zap.Strings("students", studentEmails),
	)
	s.changed(ctx)

	return nil
}

// resolveStudents находит или создаёт студентов параллельно, порядок id совпадает с emails
func (s *RelationshipService) resolveStudents(ctx context.Context, emails []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(emails))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelResolve)

	for i, email := range emails {
		g.Go(func() error {
			student, err := s.studentRepo.FindOrCreate(gctx, email)
			if err != nil {
				return fmt.Errorf("find or create student %s: %w", email, err)
			}
			ids[i] = student.ID
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return ids, nil
}

// CommonStudents возвращает email студентов, общих для всех указанных учителей.
// Все учителя должны существовать, иначе NotFoundError со списком отсутствующих.
func (s *RelationshipService) CommonStudents(ctx context.Context, teacherEmails ...string) ([]string, error) {
	teacherEmails = NormalizeEmails(teacherEmails)
	if len(teacherEmails) == 0 {
		return nil, fmt.Errorf("at least one teacher is required: %w", ErrInvalidInput)
	}

	teachers, err := s.teacherRepo.FindByEmails(ctx, teacherEmails)
	if err != nil {
		return nil, fmt.Errorf("find teachers: %w", err)
	}

	found := make(map[string]uuid.UUID, len(teachers))
	for _, teacher := range teachers {
		found[teacher.Email] = teacher.ID
	}

	var missing []string
	teacherIDs := make([]uuid.UUID, 0, len(teacherEmails))
	for _, email := range teacherEmails {
		id, ok := found[email]
		if !ok {
			missing = append(missing, email)
			continue
		}
		teacherIDs = append(teacherIDs, id)
	}

	if len(missing) > 0 {
		return nil, teachersNotFound(missing)
	}

	students, err := s.registrationRepo.CommonStudents(ctx, teacherIDs)
	if err != nil {
		return nil, fmt.Errorf("get common students: %w", err)
	}

	return model.Emails(students), nil
}

// Suspend блокирует студента. Повторная блокировка не ошибка.
func (s *RelationshipService) Suspend(ctx context.Context, studentEmail string) (bool, error) {
	studentEmail = NormalizeEmail(studentEmail)

	student, err := s.studentRepo.FindByEmail(ctx, studentEmail)
	if err != nil {
		return false, fmt.Errorf("find student: %w", err)
	}

	if student == nil {
		return false, studentNotFound(studentEmail)
	}

	changed, err := s.studentRepo.Suspend(ctx, studentEmail)
	if err != nil {
		return false, fmt.Errorf("suspend student: %w", err)
	}

	s.logger.Info("Student suspended",
		zap.String("student", studentEmail),
		zap.Bool("changed", changed),
	)
	s.changed(ctx)

	return changed, nil
}

// NotificationRecipients возвращает email незаблокированных студентов, которые
// зарегистрированы у учителя или упомянуты в тексте. Неизвестный учитель не
// мешает доставке упомянутым студентам.
func (s *RelationshipService) NotificationRecipients(ctx context.Context, teacherEmail, notification string) ([]string, error) {
	teacherEmail = NormalizeEmail(teacherEmail)
	mentioned := NormalizeEmails(mention.Extract(notification))

	teacher, err := s.teacherRepo.FindByEmail(ctx, teacherEmail)
	if err != nil {
		return nil, fmt.Errorf("find teacher: %w", err)
	}

	if teacher == nil && len(mentioned) == 0 {
		return []string{}, nil
	}

	var mentionedStudents []*model.Student
	if len(mentioned) > 0 {
		mentionedStudents, err = s.studentRepo.FindByEmails(ctx, mentioned)
		if err != nil {
			return nil, fmt.Errorf("find mentioned students: %w", err)
		}
	}

	if teacher == nil {
		recipients := make([]string, 0, len(mentionedStudents))
		for _, student := range mentionedStudents {
			if !student.IsSuspended {
				recipients = append(recipients, student.Email)
			}
		}
		sort.Strings(recipients)
		return recipients, nil
	}

	mentionedIDs := make([]uuid.UUID, 0, len(mentionedStudents))
	for _, student := range mentionedStudents {
		mentionedIDs = append(mentionedIDs, student.ID)
	}

	recipients, err := s.registrationRepo.NotificationRecipients(ctx, teacher.ID, mentionedIDs)
	if err != nil {
		return nil, fmt.Errorf("get notification recipients: %w", err)
	}

	return NormalizeEmails(recipients), nil
}

// Unregister удаляет связь учитель-студент. false если связи не было.
func (s *RelationshipService) Unregister(ctx context.Context, teacherEmail, studentEmail string) (bool, error) {
	teacherEmail = NormalizeEmail(teacherEmail)
	studentEmail = NormalizeEmail(studentEmail)

	teacher, err := s.teacherRepo.FindByEmail(ctx, teacherEmail)
	if err != nil {
		return false, fmt.Errorf("find teacher: %w", err)
	}
	if teacher == nil {
		return false, teacherNotFound(teacherEmail)
	}

	student, err := s.studentRepo.FindByEmail(ctx, studentEmail)
	if err != nil {
		return false, fmt.Errorf("find student: %w", err)
	}
	if student == nil {
		return false, studentNotFound(studentEmail)
	}

	removed, err := s.registrationRepo.Unlink(ctx, teacher.ID, student.ID)
	if err != nil {
		return false, fmt.Errorf("unregister student: %w", err)
	}

	if removed {
		s.logger.Info("Student unregistered",
			zap.String("teacher", teacherEmail),
			zap.String("student", studentEmail),
		)
		s.changed(ctx)
	}

	return removed, nil
}

// StudentTeachers возвращает email учителей студента
func (s *RelationshipService) StudentTeachers(ctx context.Context, studentEmail string) ([]string, error) {
	studentEmail = NormalizeEmail(studentEmail)

	student, err := s.studentRepo.FindByEmail(ctx, studentEmail)
	if err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}
	if student == nil {
		return nil, studentNotFound(studentEmail)
	}

	teachers, err := s.registrationRepo.TeachersByStudent(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("get student teachers: %w", err)
	}

	emails := make([]string, 0, len(teachers))
	for _, teacher := range teachers {
		emails = append(emails, teacher.Email)
	}
	return emails, nil
}

func (s *RelationshipService) changed(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.Invalidate(ctx)
	}
}
