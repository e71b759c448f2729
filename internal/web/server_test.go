package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/attendly/attendly/internal/config"
	"github.com/attendly/attendly/internal/database"
	"github.com/attendly/attendly/internal/database/mock"
)

func testServer() (*Server, *mock.StudentStore) {
	cfg := &config.Config{
		Matcher: config.MatcherConfig{EmbeddingDim: 128, Threshold: 0.6},
	}
	students := mock.NewStudentStore()
	records := mock.NewAttendanceStore()
	return NewServer(cfg, 8080, "127.0.0.1", students, records), students
}

func TestServer_HealthCheck(t *testing.T) {
	server, _ := testServer()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	recorder := httptest.NewRecorder()

	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", recorder.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", resp["status"])
	}
}

func TestServer_MarkThroughRouter(t *testing.T) {
	server, students := testServer()
	students.AddStudent(database.Student{
		UID:           "s1",
		StudentNumber: "2024-00001",
		Name:          "Jane Rivera",
		Email:         "jane@example.edu",
		Course:        "BSCS",
		Embedding:     make([]float32, 128),
		CreatedAt:     time.Now(),
	})

	body, _ := json.Marshal(map[string]string{"studentId": "s1"})
	req := httptest.NewRequest("POST", "/api/v1/attendance/mark", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d\nBody: %s", recorder.Code, recorder.Body.String())
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	server, _ := testServer()

	req := httptest.NewRequest("GET", "/api/v1/nope", nil)
	recorder := httptest.NewRecorder()

	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", recorder.Code)
	}
}
