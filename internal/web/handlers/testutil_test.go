package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/attendly/attendly/internal/attendance"
	"github.com/attendly/attendly/internal/config"
	"github.com/attendly/attendly/internal/database"
	"github.com/attendly/attendly/internal/database/mock"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Matcher: config.MatcherConfig{
			EmbeddingDim: 128,
			Threshold:    0.6,
		},
		Courses: config.CoursesConfig{
			Courses: []config.Course{
				{Code: "BSCS", Name: "BS Computer Science"},
				{Code: "BSIT", Name: "BS Information Technology"},
			},
		},
	}
}

// testStores creates fresh in-memory stores and a ledger over them
func testStores() (*mock.StudentStore, *mock.AttendanceStore, *attendance.Ledger) {
	students := mock.NewStudentStore()
	records := mock.NewAttendanceStore()
	return students, records, attendance.NewLedger(students, records)
}

// testEmbedding creates a 128-dim embedding whose first value is v
func testEmbedding(v float32) []float32 {
	e := make([]float32, 128)
	e[0] = v
	return e
}

// seedStudent adds a student with a distinguishable embedding
func seedStudent(students *mock.StudentStore, uid, name string, first float32) {
	students.AddStudent(database.Student{
		UID:           uid,
		StudentNumber: "2024-" + uid,
		Name:          name,
		Email:         uid + "@example.edu",
		Course:        "BSCS",
		Embedding:     testEmbedding(first),
		CreatedAt:     time.Now(),
	})
}

// jsonRequest creates a request with a JSON-encoded body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// rawDescriptor converts a float slice into the raw JSON form handlers accept
func rawDescriptor(values []float32) []json.RawMessage {
	out := make([]json.RawMessage, len(values))
	for i, v := range values {
		b, _ := json.Marshal(v)
		out[i] = b
	}
	return out
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected code
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedCode string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedCode {
		t.Errorf("expected error '%s', got '%v'", expectedCode, result["error"])
	}
}
