package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/face-attend/internal/identity"
	"github.com/kozaktomas/face-attend/internal/pipeline"
	"github.com/kozaktomas/face-attend/internal/store"
)

// Engine bundles the engine collaborators the HTTP handlers serve.
type Engine struct {
	Table       *identity.Table
	Tracker     *identity.Tracker
	Coordinator *identity.Coordinator
	Driver      *pipeline.Driver
	Members     store.MemberStore
	Attendance  store.AttendanceStore
	Meetings    store.MeetingStore
	// ReloadMembers rebuilds the known identity set from the member store,
	// used after reset and member deletion.
	ReloadMembers func(ctx context.Context) error
}

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
