package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/Freeeeeet/classroom_api/internal/repository/memory"
	"github.com/Freeeeeet/classroom_api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCache struct {
	stats   *model.Statistics
	getErr  error
	sets    int
	deletes int
}

func (c *fakeCache) Get(context.Context) (*model.Statistics, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.stats, nil
}

func (c *fakeCache) Set(_ context.Context, stats *model.Statistics, _ time.Duration) error {
	c.sets++
	copied := *stats
	c.stats = &copied
	return nil
}

func (c *fakeCache) Delete(context.Context) error {
	c.deletes++
	c.stats = nil
	return nil
}

func newStatistics(store *memory.Store, cache service.StatisticsCache) *service.StatisticsService {
	return service.NewStatisticsService(
		store.Teachers(),
		store.Students(),
		store.Registrations(),
		store,
		cache,
		time.Minute,
		zap.NewNop(),
	)
}

func TestStatistics_Counts(t *testing.T) {
	store := memory.NewStore()
	stats := newStatistics(store, nil)
	svc := service.NewRelationshipService(store.Teachers(), store.Students(), store.Registrations(), stats, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "k@x.com", []string{"a@x.com", "b@x.com"}))
	require.NoError(t, svc.Register(ctx, "j@x.com", []string{"b@x.com", "c@x.com"}))
	_, err := svc.Suspend(ctx, "c@x.com")
	require.NoError(t, err)

	got, err := stats.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, &model.Statistics{
		TotalTeachers:      2,
		TotalStudents:      3,
		SuspendedStudents:  1,
		ActiveStudents:     2,
		TotalRelationships: 4,
	}, got)

	assert.NoError(t, stats.Health(ctx))
}

func TestStatistics_UsesCacheAndInvalidates(t *testing.T) {
	store := memory.NewStore()
	cache := &fakeCache{}
	stats := newStatistics(store, cache)
	svc := service.NewRelationshipService(store.Teachers(), store.Students(), store.Registrations(), stats, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "k@x.com", []string{"a@x.com"}))

	first, err := stats.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	second, err := stats.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets)

	require.NoError(t, svc.Register(ctx, "k@x.com", []string{"b@x.com"}))
	assert.Equal(t, 2, cache.deletes)

	third, err := stats.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, third.TotalStudents)
}

// blockingRegistrations задерживает первый Count, пока тест не разрешит продолжить
type blockingRegistrations struct {
	service.RegistrationRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRegistrations) Count(ctx context.Context) (int, error) {
	count, err := b.RegistrationRepository.Count(ctx)
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return count, err
}

func TestStatistics_SnapshotOlderThanWriteIsNotCached(t *testing.T) {
	store := memory.NewStore()
	cache := &fakeCache{}
	registrations := &blockingRegistrations{
		RegistrationRepository: store.Registrations(),
		entered:                make(chan struct{}),
		release:                make(chan struct{}),
	}
	stats := service.NewStatisticsService(store.Teachers(), store.Students(), registrations, store, cache, time.Minute, zap.NewNop())
	svc := service.NewRelationshipService(store.Teachers(), store.Students(), store.Registrations(), stats, zap.NewNop())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := stats.Refresh(ctx)
		assert.NoError(t, err)
	}()

	<-registrations.entered
	require.NoError(t, svc.Register(ctx, "t@x.com", []string{"a@x.com"}))
	close(registrations.release)
	<-done

	assert.Zero(t, cache.sets)

	got, err := stats.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalRelationships)
	assert.Equal(t, 1, got.TotalStudents)
}

func TestStatistics_CacheErrorsFallThrough(t *testing.T) {
	store := memory.NewStore()
	cache := &fakeCache{getErr: errors.New("redis down")}
	stats := newStatistics(store, cache)

	got, err := stats.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &model.Statistics{}, got)
}

func TestHealth_CancelledContext(t *testing.T) {
	stats := newStatistics(memory.NewStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, stats.Health(ctx), context.Canceled)
}
