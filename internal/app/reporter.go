package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"go.uber.org/zap"
)

// StatisticsRefresher пересчитывает статистику
type StatisticsRefresher interface {
	Refresh(ctx context.Context) (*model.Statistics, error)
}

// Reporter периодически логирует статистику и прогревает кэш
type Reporter struct {
	stats    StatisticsRefresher
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewReporter создаёт репортер. interval <= 0 отключает фоновую задачу.
func NewReporter(stats StatisticsRefresher, interval time.Duration, logger *zap.Logger) *Reporter {
	return &Reporter{
		stats:    stats,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает фоновую задачу
func (r *Reporter) Start(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("Statistics reporter disabled")
		close(r.done)
		return
	}

	r.logger.Info("Starting statistics reporter", zap.Duration("interval", r.interval))
	go r.run(ctx)
}

// Stop останавливает задачу и ждёт её завершения
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	<-r.done
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)

	// Первый запуск сразу при старте
	r.report(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.report(ctx)
		case <-r.stopChan:
			r.logger.Info("Statistics reporter stopped")
			return
		case <-ctx.Done():
			r.logger.Info("Statistics reporter cancelled")
			return
		}
	}
}

func (r *Reporter) report(ctx context.Context) {
	stats, err := r.stats.Refresh(ctx)
	if err != nil {
		r.logger.Error("Failed to refresh statistics", zap.Error(err))
		return
	}

	r.logger.Info("Statistics",
		zap.Int("teachers", stats.TotalTeachers),
		zap.Int("students", stats.TotalStudents),
		zap.Int("suspended", stats.SuspendedStudents),
		zap.Int("active", stats.ActiveStudents),
		zap.Int("relationships", stats.TotalRelationships),
	)
}
