package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attend/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	recognitionHandler := handlers.NewRecognitionHandler(s.engine)
	enrollHandler := handlers.NewEnrollHandler(s.engine)
	attendanceHandler := handlers.NewAttendanceHandler(s.engine)
	membersHandler := handlers.NewMembersHandler(s.engine)
	meetingsHandler := handlers.NewMeetingsHandler(s.engine)
	streamHandler := handlers.NewStreamHandler(s.engine)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Recognition
		r.Get("/recognition", recognitionHandler.Snapshot)
		r.Get("/recognition/thumbnails/{key}", recognitionHandler.Thumbnail)
		r.Post("/recognition/reset", recognitionHandler.Reset)
		r.Delete("/provisional/{id}", recognitionHandler.RemoveProvisional)

		// Enrollment
		r.Post("/enroll", enrollHandler.Enroll)

		// Attendance
		r.Post("/attendance/record", attendanceHandler.RecordRecognized)
		r.Get("/attendance/{meetingID}", attendanceHandler.ListForMeeting)

		// Members
		r.Get("/members", membersHandler.List)
		r.Get("/members/{id}", membersHandler.Get)
		r.Get("/members/{id}/thumbnail", membersHandler.Thumbnail)
		r.Delete("/members/{id}", membersHandler.Delete)

		// Meetings
		r.Get("/meetings/active", meetingsHandler.Active)
		r.Post("/meetings", meetingsHandler.Start)
		r.Post("/meetings/{id}/end", meetingsHandler.End)

		// Pipeline
		r.Get("/stream", streamHandler.Stream)
		r.Get("/pipeline/status", streamHandler.Status)
	})
}
