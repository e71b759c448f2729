package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/attendly/attendly/internal/attendance"
)

func TestDashboardHandler_Stats(t *testing.T) {
	students, _, ledger := testStores()
	seedStudent(students, "s1", "Jane Rivera", 0.1)
	seedStudent(students, "s2", "Ken Adams", 0.2)

	if _, err := ledger.RecordPresence(t.Context(), "s1", fixedNow()); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	handler := NewDashboardHandler(testConfig(), ledger)
	handler.now = fixedNow

	req := httptest.NewRequest("GET", "/api/v1/dashboard/stats", nil)
	recorder := httptest.NewRecorder()

	handler.Stats(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var stats attendance.Stats
	parseJSONResponse(t, recorder, &stats)

	if stats.TotalStudents != 2 {
		t.Errorf("expected 2 students, got %d", stats.TotalStudents)
	}
	if stats.PresentToday != 1 {
		t.Errorf("expected 1 present, got %d", stats.PresentToday)
	}
	if stats.AbsentToday != 1 {
		t.Errorf("expected 1 absent, got %d", stats.AbsentToday)
	}
	if len(stats.Weekly) != 7 {
		t.Errorf("expected 7 weekly buckets, got %d", len(stats.Weekly))
	}
}

func TestDashboardHandler_Stats_StorageError(t *testing.T) {
	students, _, ledger := testStores()
	students.CountError = errTest

	handler := NewDashboardHandler(testConfig(), ledger)
	handler.now = fixedNow

	req := httptest.NewRequest("GET", "/api/v1/dashboard/stats", nil)
	recorder := httptest.NewRecorder()

	handler.Stats(recorder, req)

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	assertJSONError(t, recorder, ErrCodeStorageUnavailable)
}

func TestCoursesHandler_List_MergesEnrolled(t *testing.T) {
	students, _, _ := testStores()
	seedStudent(students, "s1", "Jane Rivera", 0.1)
	// Legacy course code not present in the embedded catalog.
	s, _ := students.Get(t.Context(), "s1")
	s.Course = "ACT"
	students.AddStudent(*s)

	handler := NewCoursesHandler(testConfig(), students)

	req := httptest.NewRequest("GET", "/api/v1/courses", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var courses []CourseResponse
	parseJSONResponse(t, recorder, &courses)

	found := false
	for _, c := range courses {
		if c.Code == "ACT" {
			found = true
			if c.Name != "ACT" {
				t.Errorf("expected unknown course to fall back to its code, got '%s'", c.Name)
			}
		}
	}
	if !found {
		t.Error("expected legacy course code in the merged list")
	}
	if len(courses) < 3 {
		t.Errorf("expected catalog plus legacy codes, got %d courses", len(courses))
	}
}
