// Package api реализует HTTP интерфейс сервиса учителей и студентов
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/Freeeeeet/classroom_api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxBodyBytes лимит тела запроса
const maxBodyBytes = 10 << 20

// RelationshipService бизнес-операции над связями учитель-студент
type RelationshipService interface {
	Register(ctx context.Context, teacherEmail string, studentEmails []string) error
	CommonStudents(ctx context.Context, teacherEmails ...string) ([]string, error)
	Suspend(ctx context.Context, studentEmail string) (bool, error)
	NotificationRecipients(ctx context.Context, teacherEmail, notification string) ([]string, error)
	Unregister(ctx context.Context, teacherEmail, studentEmail string) (bool, error)
	StudentTeachers(ctx context.Context, studentEmail string) ([]string, error)
}

// StatisticsService здоровье и статистика хранилища
type StatisticsService interface {
	Health(ctx context.Context) error
	Statistics(ctx context.Context) (*model.Statistics, error)
}

type Server struct {
	relationships  RelationshipService
	stats          StatisticsService
	prefix         string
	requestTimeout time.Duration
	environment    string
	logger         *zap.Logger
}

type Options struct {
	Prefix         string
	RequestTimeout time.Duration
	Environment    string
}

func NewServer(relationships RelationshipService, stats StatisticsService, opts Options, logger *zap.Logger) *Server {
	if opts.Prefix == "" {
		opts.Prefix = "/api"
	}
	return &Server{
		relationships:  relationships,
		stats:          stats,
		prefix:         opts.Prefix,
		requestTimeout: opts.RequestTimeout,
		environment:    opts.Environment,
		logger:         logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.requestTimeout > 0 {
		r.Use(s.withTimeout)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route "+r.URL.RequestURI()+" not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed")
	})

	r.Get("/", s.handleRoot)

	r.Route(s.prefix, func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Get("/commonstudents", s.handleCommonStudents)
		r.Post("/suspend", s.handleSuspend)
		r.Post("/retrievefornotifications", s.handleRetrieveForNotifications)
		r.Post("/unregister", s.handleUnregister)
		r.Get("/students/{student}/teachers", s.handleStudentTeachers)
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// withTimeout ограничивает контекст запроса; ответ 504 пишет writeServiceError
func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeServiceError отображает ошибки сервиса в HTTP статусы
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, "Validation error: "+err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("Request timed out",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeMessage(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
