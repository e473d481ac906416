package api

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/validation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type registerRequest struct {
	Teacher  string   `json:"teacher" validate:"required,classroom_email"`
	Students []string `json:"students" validate:"required,min=1,dive,required,classroom_email"`
}

type commonStudentsQuery struct {
	Teachers []string `json:"teacher" validate:"required,min=1,dive,required,classroom_email"`
}

type suspendRequest struct {
	Student string `json:"student" validate:"required,classroom_email"`
}

type notificationRequest struct {
	Teacher      string  `json:"teacher" validate:"required,classroom_email"`
	Notification *string `json:"notification" validate:"required,min=1"`
}

type unregisterRequest struct {
	Teacher string `json:"teacher" validate:"required,classroom_email"`
	Student string `json:"student" validate:"required,classroom_email"`
}

type studentPath struct {
	Student string `json:"student" validate:"required,classroom_email"`
}

// validRequest проверяет запрос и пишет 400 при ошибке
func validRequest(w http.ResponseWriter, req interface{}) bool {
	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, validation.Message(err))
		return false
	}
	return true
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Teacher-Student API is running",
		"version":     "1.0.0",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": s.environment,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Validation error: invalid JSON body")
		return
	}

	if !validRequest(w, &req) {
		return
	}

	if err := s.relationships.Register(r.Context(), req.Teacher, req.Students); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCommonStudents(w http.ResponseWriter, r *http.Request) {
	query := commonStudentsQuery{Teachers: r.URL.Query()["teacher"]}
	if !validRequest(w, &query) {
		return
	}

	students, err := s.relationships.CommonStudents(r.Context(), query.Teachers...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"students": nonNil(students)})
}

func (s *Server) handleSuspend(w http.ResponseWriter, r *http.Request) {
	var req suspendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Validation error: invalid JSON body")
		return
	}

	if !validRequest(w, &req) {
		return
	}

	if _, err := s.relationships.Suspend(r.Context(), req.Student); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetrieveForNotifications(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Validation error: invalid JSON body")
		return
	}

	if !validRequest(w, &req) {
		return
	}

	recipients, err := s.relationships.NotificationRecipients(r.Context(), req.Teacher, *req.Notification)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"recipients": nonNil(recipients)})
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	var req unregisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Validation error: invalid JSON body")
		return
	}

	if !validRequest(w, &req) {
		return
	}

	if _, err := s.relationships.Unregister(r.Context(), req.Teacher, req.Student); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStudentTeachers(w http.ResponseWriter, r *http.Request) {
	path := studentPath{Student: chi.URLParam(r, "student")}
	if !validRequest(w, &path) {
		return
	}

	teachers, err := s.relationships.StudentTeachers(r.Context(), path.Student)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"teachers": nonNil(teachers)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if err := s.stats.Health(r.Context()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]string{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Statistics(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"statistics": stats,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
