package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kozaktomas/face-attend/internal/identity"
)

// EnrollHandler promotes provisional identities into members.
type EnrollHandler struct {
	engine *Engine
}

// NewEnrollHandler creates a new enrollment handler.
func NewEnrollHandler(engine *Engine) *EnrollHandler {
	return &EnrollHandler{engine: engine}
}

// EnrollRequest is the enrollment payload.
type EnrollRequest struct {
	ProvisionalID string `json:"provisional_id"`
	Name          string `json:"name"`
	Major         string `json:"major"`
	Age           int    `json:"age"`
	Bio           string `json:"bio"`
}

// EnrollResponse reports the newly created member.
type EnrollResponse struct {
	MemberID int64  `json:"member_id"`
	Name     string `json:"name"`
}

// Enroll promotes a provisional identity. Precondition violations map to
// specific status codes; the identity table is untouched on rejection.
func (h *EnrollHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if req.ProvisionalID == "" {
		respondError(w, http.StatusUnprocessableEntity, "provisional_id is required")
		return
	}

	memberID, err := h.engine.Coordinator.Promote(r.Context(), req.ProvisionalID, req.Name, identity.Metadata{
		Major: req.Major,
		Age:   req.Age,
		Bio:   req.Bio,
	})
	switch {
	case errors.Is(err, identity.ErrDuplicateName):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, identity.ErrUnknownProvisional):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, identity.ErrNoEmbedding):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, EnrollResponse{MemberID: memberID, Name: req.Name})
}
