package handlers

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/attendly/attendly/internal/database/mock"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 2, 8, 30, 0, 0, time.Local)
}

type testFixture struct {
	students *mock.StudentStore
	records  *mock.AttendanceStore
}

func newAttendanceHandler(t *testing.T) (*AttendanceHandler, *testFixture) {
	t.Helper()
	students, records, ledger := testStores()
	handler := NewAttendanceHandler(testConfig(), students, ledger)
	handler.now = fixedNow
	return handler, &testFixture{students: students, records: records}
}

func TestAttendanceHandler_Recognize_Match(t *testing.T) {
	handler, fix := newAttendanceHandler(t)
	seedStudent(fix.students, "s1", "Jane Rivera", 0.1)
	seedStudent(fix.students, "s2", "Ken Adams", 5.0)

	body := RecognizeRequest{Descriptor: rawDescriptor(testEmbedding(0.1))}
	req := jsonRequest(t, "POST", "/api/v1/attendance/recognize", body)
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp RecognizeResponse
	parseJSONResponse(t, recorder, &resp)

	if !resp.Recognized {
		t.Fatal("expected a recognized student")
	}
	if resp.Student.UID != "s1" {
		t.Errorf("expected s1, got '%s'", resp.Student.UID)
	}
	if resp.Score != 1.0 {
		t.Errorf("expected score 1.0 for exact match, got %v", resp.Score)
	}
	if resp.Attendance != nil {
		t.Error("expected no attendance record without mark flag")
	}
}

func TestAttendanceHandler_Recognize_NoMatch(t *testing.T) {
	handler, fix := newAttendanceHandler(t)
	seedStudent(fix.students, "s1", "Jane Rivera", 0.1)

	// Distance 4.9 is far above the 0.6 threshold.
	body := RecognizeRequest{Descriptor: rawDescriptor(testEmbedding(5.0))}
	req := jsonRequest(t, "POST", "/api/v1/attendance/recognize", body)
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp RecognizeResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.Recognized {
		t.Error("expected no recognition")
	}
	if resp.Student != nil {
		t.Error("expected no student in no-match response")
	}
	if resp.Error != ErrCodeNoMatch {
		t.Errorf("expected error code %s in body, got '%s'", ErrCodeNoMatch, resp.Error)
	}
}

func TestAttendanceHandler_Recognize_WireFieldName(t *testing.T) {
	handler, fix := newAttendanceHandler(t)
	seedStudent(fix.students, "s1", "Jane Rivera", 0.1)

	// Clients send the descriptor under face_descriptor.
	body := map[string]any{"face_descriptor": rawDescriptor(testEmbedding(0.1))}
	req := jsonRequest(t, "POST", "/api/v1/attendance/recognize", body)
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp RecognizeResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Recognized {
		t.Fatalf("expected recognition, got body %s", recorder.Body.String())
	}
	if resp.Student.UID != "s1" {
		t.Errorf("expected s1, got '%s'", resp.Student.UID)
	}
}

func TestAttendanceHandler_Recognize_EmptyGallery(t *testing.T) {
	handler, _ := newAttendanceHandler(t)

	body := RecognizeRequest{Descriptor: rawDescriptor(testEmbedding(0.1))}
	req := jsonRequest(t, "POST", "/api/v1/attendance/recognize", body)
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, ErrCodeNoStudents)
}

func TestAttendanceHandler_Recognize_WrongDimension(t *testing.T) {
	handler, fix := newAttendanceHandler(t)
	seedStudent(fix.students, "s1", "Jane Rivera", 0.1)

	body := RecognizeRequest{Descriptor: rawDescriptor(make([]float32, 64))}
	req := jsonRequest(t, "POST", "/api/v1/attendance/recognize", body)
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, ErrCodeInvalidDescriptorLength)
}

func TestAttendanceHandler_Recognize_AndMark(t *testing.T) {
	handler, fix := newAttendanceHandler(t)
	seedStudent(fix.students, "s1", "Jane Rivera", 0.1)

	body := RecognizeRequest{Descriptor: rawDescriptor(testEmbedding(0.1)), Mark: true}
	req := jsonRequest(t, "POST", "/api/v1/attendance/recognize", body)
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp RecognizeResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.Attendance == nil {
		t.Fatal("expected an attendance record")
	}
	if resp.Attendance.Day != "2026-03-02" {
		t.Errorf("expected day 2026-03-02, got '%s'", resp.Attendance.Day)
	}

	// Second kiosk scan the same day reports the existing record instead.
	recorder = httptest.NewRecorder()
	req = jsonRequest(t, "POST", "/api/v1/attendance/recognize", body)
	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	resp = RecognizeResponse{}
	parseJSONResponse(t, recorder, &resp)

	if resp.Attendance != nil {
		t.Error("expected no new attendance record")
	}
	if resp.AlreadyMarked == nil {
		t.Fatal("expected the existing record in alreadyMarked")
	}
	if resp.AlreadyMarked.Day != "2026-03-02" {
		t.Errorf("expected existing day 2026-03-02, got '%s'", resp.AlreadyMarked.Day)
	}
}

func TestAttendanceHandler_Mark_Success(t *testing.T) {
	handler, fix := newAttendanceHandler(t)
	seedStudent(fix.students, "s1", "Jane Rivera", 0.1)

	req := jsonRequest(t, "POST", "/api/v1/attendance/mark", MarkRequest{StudentID: "s1"})
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var resp AttendanceDTO
	parseJSONResponse(t, recorder, &resp)
	if resp.StudentUID != "s1" {
		t.Errorf("expected s1, got '%s'", resp.StudentUID)
	}
	if resp.Status != "Present" {
		t.Errorf("expected status Present, got '%s'", resp.Status)
	}
	if resp.StudentName != "Jane Rivera" {
		t.Errorf("expected student name, got '%s'", resp.StudentName)
	}
}

func TestAttendanceHandler_Mark_MissingStudentID(t *testing.T) {
	handler, _ := newAttendanceHandler(t)

	req := jsonRequest(t, "POST", "/api/v1/attendance/mark", MarkRequest{})
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, ErrCodeMissingStudentID)
}

func TestAttendanceHandler_Mark_UnknownStudent(t *testing.T) {
	handler, _ := newAttendanceHandler(t)

	req := jsonRequest(t, "POST", "/api/v1/attendance/mark", MarkRequest{StudentID: "ghost"})
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, ErrCodeStudentNotFound)
}

func TestAttendanceHandler_Mark_Duplicate(t *testing.T) {
	handler, fix := newAttendanceHandler(t)
	seedStudent(fix.students, "s1", "Jane Rivera", 0.1)

	req := jsonRequest(t, "POST", "/api/v1/attendance/mark", MarkRequest{StudentID: "s1"})
	recorder := httptest.NewRecorder()
	handler.Mark(recorder, req)
	assertStatusCode(t, recorder, http.StatusCreated)

	req = jsonRequest(t, "POST", "/api/v1/attendance/mark", MarkRequest{StudentID: "s1"})
	recorder = httptest.NewRecorder()
	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, ErrCodeDuplicateAttendance)

	var resp struct {
		Existing AttendanceDTO `json:"existing"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.Existing.StudentUID != "s1" {
		t.Errorf("expected existing record for s1, got '%s'", resp.Existing.StudentUID)
	}
	if resp.Existing.Day != "2026-03-02" {
		t.Errorf("expected existing day 2026-03-02, got '%s'", resp.Existing.Day)
	}
}

func TestAttendanceHandler_Mark_StorageError(t *testing.T) {
	handler, fix := newAttendanceHandler(t)
	seedStudent(fix.students, "s1", "Jane Rivera", 0.1)
	fix.records.InsertError = errTest

	req := jsonRequest(t, "POST", "/api/v1/attendance/mark", MarkRequest{StudentID: "s1"})
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	assertJSONError(t, recorder, ErrCodeStorageUnavailable)
}

func TestAttendanceHandler_Report(t *testing.T) {
	handler, fix := newAttendanceHandler(t)
	seedStudent(fix.students, "s1", "Jane Rivera", 0.1)

	req := jsonRequest(t, "POST", "/api/v1/attendance/mark", MarkRequest{StudentID: "s1"})
	recorder := httptest.NewRecorder()
	handler.Mark(recorder, req)
	assertStatusCode(t, recorder, http.StatusCreated)

	req = httptest.NewRequest("GET", "/api/v1/attendance/report?start=2026-03-01&end=2026-03-03", nil)
	recorder = httptest.NewRecorder()

	handler.Report(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp ReportResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(resp.Records))
	}
	if resp.Summary.TotalStudents != 1 {
		t.Errorf("expected 1 student in summary, got %d", resp.Summary.TotalStudents)
	}
}

func TestAttendanceHandler_Report_InvalidDay(t *testing.T) {
	handler, _ := newAttendanceHandler(t)

	req := httptest.NewRequest("GET", "/api/v1/attendance/report?start=03/01/2026", nil)
	recorder := httptest.NewRecorder()

	handler.Report(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, ErrCodeInvalidRequest)
}

func TestAttendanceHandler_Export_CSV(t *testing.T) {
	handler, fix := newAttendanceHandler(t)
	seedStudent(fix.students, "s1", "Jane Rivera", 0.1)

	req := jsonRequest(t, "POST", "/api/v1/attendance/mark", MarkRequest{StudentID: "s1"})
	recorder := httptest.NewRecorder()
	handler.Mark(recorder, req)
	assertStatusCode(t, recorder, http.StatusCreated)

	req = httptest.NewRequest("GET", "/api/v1/attendance/export?start=2026-03-01&end=2026-03-03", nil)
	recorder = httptest.NewRecorder()

	handler.Export(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	ct := recorder.Header().Get("Content-Type")
	if ct != "text/csv" {
		t.Errorf("expected Content-Type 'text/csv', got '%s'", ct)
	}

	lines := strings.Split(strings.TrimSpace(recorder.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines", len(lines))
	}
	if lines[0] != "Date,Student ID,Name,Course,Time In,Status" {
		t.Errorf("unexpected CSV header: '%s'", lines[0])
	}
	if !strings.Contains(lines[1], "2026-03-02") || !strings.Contains(lines[1], "Jane Rivera") {
		t.Errorf("unexpected CSV row: '%s'", lines[1])
	}
}

// brokenResponseWriter fails every body write, like a client that hung up
// mid-download.
type brokenResponseWriter struct {
	header http.Header
}

func (w *brokenResponseWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *brokenResponseWriter) WriteHeader(int) {}

func (w *brokenResponseWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestAttendanceHandler_Export_WriteFailureLogged(t *testing.T) {
	handler, fix := newAttendanceHandler(t)
	seedStudent(fix.students, "s1", "Jane Rivera", 0.1)

	req := jsonRequest(t, "POST", "/api/v1/attendance/mark", MarkRequest{StudentID: "s1"})
	recorder := httptest.NewRecorder()
	handler.Mark(recorder, req)
	assertStatusCode(t, recorder, http.StatusCreated)

	var logged bytes.Buffer
	log.SetOutput(&logged)
	defer log.SetOutput(os.Stderr)

	req = httptest.NewRequest("GET", "/api/v1/attendance/export?start=2026-03-01&end=2026-03-03", nil)
	handler.Export(&brokenResponseWriter{}, req)

	if !strings.Contains(logged.String(), "CSV export") {
		t.Errorf("expected stream failure to be logged, got: %s", logged.String())
	}
}
