package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/app"
	"github.com/Freeeeeet/classroom_api/internal/cache"
	"github.com/Freeeeeet/classroom_api/internal/config"
	"github.com/Freeeeeet/classroom_api/internal/controller/api"
	"github.com/Freeeeeet/classroom_api/internal/controller/telegram"
	"github.com/Freeeeeet/classroom_api/internal/repository"
	"github.com/Freeeeeet/classroom_api/internal/repository/memory"
	"github.com/Freeeeeet/classroom_api/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Application stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

// storage набор репозиториев выбранного драйвера
type storage struct {
	teachers      service.TeacherRepository
	students      service.StudentRepository
	registrations service.RegistrationRepository
	pinger        service.Pinger
	close         func()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting classroom api",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.StorageDriver),
		zap.String("addr", cfg.HTTPAddr),
	)

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	var statsCache service.StatisticsCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		statsCache = cache.NewStatisticsCache(client)
		logger.Info("✅ Connected to Redis", zap.String("addr", cfg.RedisAddr))
	}

	statsService := service.NewStatisticsService(
		store.teachers,
		store.students,
		store.registrations,
		store.pinger,
		statsCache,
		cfg.StatsCacheTTL,
		logger,
	)
	relationshipService := service.NewRelationshipService(
		store.teachers,
		store.students,
		store.registrations,
		statsService,
		logger,
	)

	reporter := app.NewReporter(statsService, cfg.StatsInterval, logger)
	reporter.Start(ctx)
	defer reporter.Stop()

	if cfg.TelegramToken != "" {
		if err := startBot(ctx, cfg.TelegramToken, relationshipService, statsService, logger); err != nil {
			return err
		}
	}

	server := api.NewServer(relationshipService, statsService, api.Options{
		Prefix:         cfg.APIPrefix,
		RequestTimeout: cfg.RequestTimeout,
		Environment:    cfg.Environment,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received", zap.Duration("timeout", cfg.ShutdownTimeout))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &storage{
			teachers:      store.Teachers(),
			students:      store.Students(),
			registrations: store.Registrations(),
			pinger:        store,
			close:         func() {},
		}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	poolConfig.MaxConns = cfg.DBMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("✅ Connected to database")

	if cfg.RunMigrations {
		if err := migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	teachers := repository.NewTeacherRepository(pool)
	return &storage{
		teachers:      teachers,
		students:      repository.NewStudentRepository(pool),
		registrations: repository.NewRegistrationRepository(pool),
		pinger:        teachers,
		close:         pool.Close,
	}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer migrator.Close()

	return migrator.Run(ctx)
}

func startBot(
	ctx context.Context,
	token string,
	relationships telegram.RelationshipService,
	stats telegram.StatisticsService,
	logger *zap.Logger,
) error {
	botInstance, err := bot.New(token)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	controller := telegram.NewBotController(botInstance, relationships, stats, logger)
	if err := controller.RegisterHandlers(ctx); err != nil {
		return fmt.Errorf("register bot handlers: %w", err)
	}

	go controller.Start(ctx)
	return nil
}
