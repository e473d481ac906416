package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/Freeeeeet/classroom_api/internal/repository/memory"
	"github.com/Freeeeeet/classroom_api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	handler http.Handler
	store   *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	logger := zap.NewNop()
	stats := service.NewStatisticsService(store.Teachers(), store.Students(), store.Registrations(), store, nil, 0, logger)
	relationships := service.NewRelationshipService(store.Teachers(), store.Students(), store.Registrations(), stats, logger)

	server := NewServer(relationships, stats, Options{Prefix: "/api", Environment: "test"}, logger)
	return &testServer{handler: server.Router(), store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegisterAndCommonStudents(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "teacherken@gmail.com",
		"students": []string{"studentjon@gmail.com", "studenthon@gmail.com"},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "teacherjoe@gmail.com",
		"students": []string{"studentjon@gmail.com", "studentbob@gmail.com"},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/commonstudents?teacher=teacherken%40gmail.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"students":["studenthon@gmail.com","studentjon@gmail.com"]}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/commonstudents?teacher=teacherken%40gmail.com&teacher=teacherjoe%40gmail.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"students":["studentjon@gmail.com"]}`, rec.Body.String())
}

func TestCommonStudents_EmptyResultIsArray(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "a@x.com",
		"students": []string{"s1@x.com"},
	})
	ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "b@x.com",
		"students": []string{"s2@x.com"},
	})

	rec := ts.do(t, http.MethodGet, "/api/commonstudents?teacher=a%40x.com&teacher=b%40x.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"students":[]}`, rec.Body.String())
}

func TestCommonStudents_UnknownTeacher(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "known@x.com",
		"students": []string{"s1@x.com"},
	})

	rec := ts.do(t, http.MethodGet, "/api/commonstudents?teacher=known%40x.com&teacher=ghost%40x.com&teacher=nobody%40x.com", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Teachers not found: ghost@x.com, nobody@x.com", decodeBody(t, rec)["message"])
}

func TestCommonStudents_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/commonstudents", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/commonstudents?teacher=not-an-email", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "Validation error")
}

func TestRegister_Validation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing teacher", body: map[string]interface{}{"students": []string{"s@x.com"}}},
		{name: "invalid teacher", body: map[string]interface{}{"teacher": "nope", "students": []string{"s@x.com"}}},
		{name: "empty students", body: map[string]interface{}{"teacher": "t@x.com", "students": []string{}}},
		{name: "invalid student", body: map[string]interface{}{"teacher": "t@x.com", "students": []string{"bad"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuspend(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "teacherken@gmail.com",
		"students": []string{"studentmary@gmail.com"},
	})

	rec := ts.do(t, http.MethodPost, "/api/suspend", map[string]string{"student": "StudentMary@gmail.com"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// повторная блокировка не ошибка
	rec = ts.do(t, http.MethodPost, "/api/suspend", map[string]string{"student": "studentmary@gmail.com"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/suspend", map[string]string{"student": "ghost@gmail.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Student not found: ghost@gmail.com", decodeBody(t, rec)["message"])
}

func TestRetrieveForNotifications(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "teacherken@gmail.com",
		"students": []string{"studentbob@gmail.com", "studentmary@gmail.com"},
	})
	ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "teacherjoe@gmail.com",
		"students": []string{"studentagnes@gmail.com", "studentmiche@gmail.com"},
	})
	ts.do(t, http.MethodPost, "/api/suspend", map[string]string{"student": "studentmary@gmail.com"})

	rec := ts.do(t, http.MethodPost, "/api/retrievefornotifications", map[string]string{
		"teacher":      "teacherken@gmail.com",
		"notification": "Hello students! @studentagnes@gmail.com @studentmiche@gmail.com @studentmary@gmail.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"recipients":["studentagnes@gmail.com","studentbob@gmail.com","studentmiche@gmail.com"]}`,
		rec.Body.String(),
	)

	rec = ts.do(t, http.MethodPost, "/api/retrievefornotifications", map[string]string{
		"teacher":      "teacherken@gmail.com",
		"notification": "Hey everybody",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"recipients":["studentbob@gmail.com"]}`, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/retrievefornotifications", map[string]string{
		"teacher":      "unknown@gmail.com",
		"notification": "Hey everybody",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"recipients":[]}`, rec.Body.String())
}

func TestRetrieveForNotifications_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/retrievefornotifications", map[string]string{
		"teacher": "teacherken@gmail.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation error: notification is required", decodeBody(t, rec)["message"])
}

func TestValidationMessages(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "t@x.com",
		"students": []string{"s@x.com", "bad"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation error: students[1] must be a valid email", decodeBody(t, rec)["message"])

	rec = ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{"teacher": "t@x.com", "students": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation error: students must contain at least 1 item", decodeBody(t, rec)["message"])

	rec = ts.do(t, http.MethodPost, "/api/retrievefornotifications", map[string]string{
		"teacher":      "t@x.com",
		"notification": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation error: notification is not allowed to be empty", decodeBody(t, rec)["message"])

	rec = ts.do(t, http.MethodGet, "/api/commonstudents?teacher=not-an-email", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation error: teacher[0] must be a valid email", decodeBody(t, rec)["message"])

	rec = ts.do(t, http.MethodGet, "/api/students/nope/teachers", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation error: student must be a valid email", decodeBody(t, rec)["message"])
}

func TestUnregisterAndStudentTeachers(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "t1@x.com",
		"students": []string{"s@x.com"},
	})
	ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "t2@x.com",
		"students": []string{"s@x.com"},
	})

	rec := ts.do(t, http.MethodGet, "/api/students/s@x.com/teachers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"teachers":["t1@x.com","t2@x.com"]}`, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/unregister", map[string]string{"teacher": "t1@x.com", "student": "s@x.com"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/students/s@x.com/teachers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"teachers":["t2@x.com"]}`, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/unregister", map[string]string{"teacher": "ghost@x.com", "student": "s@x.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndStats(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/register", map[string]interface{}{
		"teacher":  "t@x.com",
		"students": []string{"a@x.com", "b@x.com"},
	})
	ts.do(t, http.MethodPost, "/api/suspend", map[string]string{"student": "a@x.com"})

	rec := ts.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])

	rec = ts.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Statistics model.Statistics `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.Statistics{
		TotalTeachers:      1,
		TotalStudents:      2,
		SuspendedStudents:  1,
		ActiveStudents:     1,
		TotalRelationships: 2,
	}, body.Statistics)
}

func TestNotFoundRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route /api/nope not found", decodeBody(t, rec)["message"])
}

type failingStats struct{}

func (failingStats) Health(context.Context) error { return errors.New("connection refused") }
func (failingStats) Statistics(context.Context) (*model.Statistics, error) {
	return nil, errors.New("connection refused")
}

func TestStorageFailuresMapToServerErrors(t *testing.T) {
	store := memory.NewStore()
	logger := zap.NewNop()
	relationships := service.NewRelationshipService(store.Teachers(), store.Students(), store.Registrations(), nil, logger)
	handler := NewServer(relationships, failingStats{}, Options{}, logger).Router()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, rec.Body.String())
}

// slowStats отвечает только после отмены контекста запроса
type slowStats struct{}

func (slowStats) Health(context.Context) error { return nil }
func (slowStats) Statistics(ctx context.Context) (*model.Statistics, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRequestTimeout(t *testing.T) {
	store := memory.NewStore()
	logger := zap.NewNop()
	relationships := service.NewRelationshipService(store.Teachers(), store.Students(), store.Registrations(), nil, logger)
	handler := NewServer(relationships, slowStats{}, Options{RequestTimeout: 20 * time.Millisecond}, logger).Router()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.JSONEq(t, `{"message":"Request timed out"}`, rec.Body.String())
}
