package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatisticsService считает статистику хранилища и кэширует её
type StatisticsService struct {
	teacherRepo      TeacherRepository
	studentRepo      StudentRepository
	registrationRepo RegistrationRepository
	pinger           Pinger
	cache            StatisticsCache
	cacheTTL         time.Duration
	logger           *zap.Logger

	// generation растёт при каждой инвалидации; снимок, посчитанный
	// до изменения данных, в кэш не пишется
	mu         sync.Mutex
	generation uint64
}

// NewStatisticsService создаёт сервис статистики. cache может быть nil.
func NewStatisticsService(
	teacherRepo TeacherRepository,
	studentRepo StudentRepository,
	registrationRepo RegistrationRepository,
	pinger Pinger,
	cache StatisticsCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *StatisticsService {
	return &StatisticsService{
		teacherRepo:      teacherRepo,
		studentRepo:      studentRepo,
		registrationRepo: registrationRepo,
		pinger:           pinger,
		cache:            cache,
		cacheTTL:         cacheTTL,
		logger:           logger,
	}
}

// Health проверяет доступность хранилища
func (s *StatisticsService) Health(ctx context.Context) error {
	if err := s.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("ping storage: %w", err)
	}
	return nil
}

// Statistics возвращает счётчики из кэша или из хранилища.
// Ошибки кэша только логируются.
func (s *StatisticsService) Statistics(ctx context.Context) (*model.Statistics, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("Failed to read statistics cache", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	stats, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Refresh пересчитывает статистику по хранилищу и обновляет кэш
func (s *StatisticsService) Refresh(ctx context.Context) (*model.Statistics, error) {
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	var stats model.Statistics

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.teacherRepo.Count(gctx)
		stats.TotalTeachers = count
		return err
	})
	g.Go(func() error {
		count, err := s.studentRepo.Count(gctx)
		stats.TotalStudents = count
		return err
	})
	g.Go(func() error {
		count, err := s.studentRepo.CountSuspended(gctx)
		stats.SuspendedStudents = count
		return err
	})
	g.Go(func() error {
		count, err := s.registrationRepo.Count(gctx)
		stats.TotalRelationships = count
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}

	stats.ActiveStudents = stats.TotalStudents - stats.SuspendedStudents

	s.store(ctx, &stats, generation)

	return &stats, nil
}

// store пишет снимок в кэш, если с начала подсчёта не было инвалидаций
func (s *StatisticsService) store(ctx context.Context, stats *model.Statistics, generation uint64) {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation {
		s.logger.Debug("Skipping stale statistics snapshot")
		return
	}
	if err := s.cache.Set(ctx, stats, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to write statistics cache", zap.Error(err))
	}
}

// Invalidate сбрасывает кэш после изменения данных
func (s *StatisticsService) Invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx); err != nil {
		s.logger.Warn("Failed to invalidate statistics cache", zap.Error(err))
	}
}
