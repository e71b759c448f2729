package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/attendly/attendly/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	studentsHandler := handlers.NewStudentsHandler(s.config, s.students)
	attendanceHandler := handlers.NewAttendanceHandler(s.config, s.students, s.ledger)
	dashboardHandler := handlers.NewDashboardHandler(s.config, s.ledger)
	coursesHandler := handlers.NewCoursesHandler(s.config, s.students)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Students
		r.Post("/students", studentsHandler.Enroll)
		r.Get("/students", studentsHandler.List)
		r.Get("/students/{uid}", studentsHandler.Get)
		r.Put("/students/{uid}", studentsHandler.Update)
		r.Delete("/students/{uid}", studentsHandler.Delete)

		// Attendance
		r.Post("/attendance/recognize", attendanceHandler.Recognize)
		r.Post("/attendance/mark", attendanceHandler.Mark)
		r.Get("/attendance/report", attendanceHandler.Report)
		r.Get("/attendance/export", attendanceHandler.Export)

		// Dashboard
		r.Get("/dashboard/stats", dashboardHandler.Stats)

		// Courses
		r.Get("/courses", coursesHandler.List)
	})
}
