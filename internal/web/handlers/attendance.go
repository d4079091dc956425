package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attend/internal/store"
)

// AttendanceHandler drives the bulk attendance path.
type AttendanceHandler struct {
	engine *Engine
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(engine *Engine) *AttendanceHandler {
	return &AttendanceHandler{engine: engine}
}

// RecordResponse reports how many new marks were written.
type RecordResponse struct {
	Recorded int `json:"recorded"`
}

// RecordRecognized records attendance for every member recognized this
// session. Members already recorded for the active meeting are skipped.
func (h *AttendanceHandler) RecordRecognized(w http.ResponseWriter, r *http.Request) {
	count, err := h.engine.Coordinator.RecordAttendanceForRecognized(r.Context())
	if errors.Is(err, store.ErrNoActiveMeeting) {
		respondError(w, http.StatusConflict, "no active meeting")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, RecordResponse{Recorded: count})
}

// ListForMeeting returns the attendance records of one meeting.
func (h *AttendanceHandler) ListForMeeting(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")

	records, err := h.engine.Attendance.ListForMeeting(r.Context(), meetingID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type record struct {
		MemberID   int64  `json:"member_id"`
		RecordedAt string `json:"recorded_at"`
	}
	out := make([]record, 0, len(records))
	for _, rec := range records {
		out = append(out, record{
			MemberID:   rec.MemberID,
			RecordedAt: rec.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	respondJSON(w, http.StatusOK, out)
}
