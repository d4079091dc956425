package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attend/internal/store"
)

// MeetingsHandler manages meeting sessions.
type MeetingsHandler struct {
	engine *Engine
}

// NewMeetingsHandler creates a new meetings handler.
func NewMeetingsHandler(engine *Engine) *MeetingsHandler {
	return &MeetingsHandler{engine: engine}
}

// MeetingResponse is the JSON shape of a meeting.
type MeetingResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
}

func toMeetingResponse(m store.Meeting) MeetingResponse {
	out := MeetingResponse{
		ID:        m.ID,
		Title:     m.Title,
		StartTime: m.StartTime.Format(time.RFC3339),
	}
	if m.EndTime != nil {
		out.EndTime = m.EndTime.Format(time.RFC3339)
	}
	return out
}

// Active returns the currently open meeting, if any.
func (h *MeetingsHandler) Active(w http.ResponseWriter, r *http.Request) {
	meeting, err := h.engine.Meetings.Active(r.Context())
	if errors.Is(err, store.ErrNoActiveMeeting) {
		respondError(w, http.StatusNotFound, "no active meeting")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, toMeetingResponse(meeting))
}

// Start opens a new meeting session.
func (h *MeetingsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusUnprocessableEntity, "title must not be empty")
		return
	}

	meeting, err := h.engine.Meetings.Start(r.Context(), req.Title)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, toMeetingResponse(meeting))
}

// End closes a meeting session.
func (h *MeetingsHandler) End(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.engine.Meetings.End(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "meeting not found or already ended")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"ended": id})
}
