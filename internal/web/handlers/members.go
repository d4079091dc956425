package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attend/internal/store"
)

// MembersHandler exposes member records from the external store.
type MembersHandler struct {
	engine *Engine
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(engine *Engine) *MembersHandler {
	return &MembersHandler{engine: engine}
}

// MemberResponse is the JSON shape of a member.
type MemberResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Major        string `json:"major,omitempty"`
	Age          int    `json:"age,omitempty"`
	Bio          string `json:"bio,omitempty"`
	MeetingCount int    `json:"meeting_count"`
	HasEmbedding bool   `json:"has_embedding"`
}

func toMemberResponse(m store.Member) MemberResponse {
	return MemberResponse{
		ID:           m.ID,
		Name:         m.Name,
		Major:        m.Major,
		Age:          m.Age,
		Bio:          m.Bio,
		MeetingCount: m.MeetingCount,
		HasEmbedding: len(m.Embedding) > 0,
	}
}

// List returns all members.
func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.engine.Members.LoadAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get returns one member by id.
func (h *MembersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	m, err := h.engine.Members.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "member not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, toMemberResponse(m))
}

// Thumbnail serves the member's stored profile crop.
func (h *MembersHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	m, err := h.engine.Members.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && len(m.Thumbnail) == 0) {
		respondError(w, http.StatusNotFound, "thumbnail not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(m.Thumbnail)
}

// Delete removes a member and reloads the known identity set so the table
// never serves an identity whose member is gone.
func (h *MembersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	if err := h.engine.Members.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "member not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.engine.ReloadMembers != nil {
		if err := h.engine.ReloadMembers(r.Context()); err != nil {
			log.Printf("reloading members after delete: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}
