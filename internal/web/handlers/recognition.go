package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attend/internal/imgutil"
)

// RecognitionHandler serves recognition snapshots and session state.
type RecognitionHandler struct {
	engine *Engine
}

// NewRecognitionHandler creates a new recognition handler.
func NewRecognitionHandler(engine *Engine) *RecognitionHandler {
	return &RecognitionHandler{engine: engine}
}

// Snapshot returns the current recognition state. The snapshot is always
// consistent as of some completed frame.
func (h *RecognitionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Table.Snapshot())
}

// Thumbnail serves a face crop as JPEG. Known identities resolve by their
// slugged display name, provisional ones by their unknown_<n> id.
func (h *RecognitionHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	img, ok := h.engine.Table.Thumbnail(key)
	if !ok {
		respondError(w, http.StatusNotFound, "thumbnail not found")
		return
	}

	data, err := imgutil.EncodeJPEG(img)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode thumbnail")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Reset drops all session state and reloads members from the store.
func (h *RecognitionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.engine.Table.Reset()

	if h.engine.ReloadMembers != nil {
		if err := h.engine.ReloadMembers(r.Context()); err != nil {
			log.Printf("reloading members after reset: %v", err)
			respondError(w, http.StatusInternalServerError, "reset done but member reload failed")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// RemoveProvisional drops a single provisional identity.
func (h *RecognitionHandler) RemoveProvisional(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !h.engine.Table.RemoveProvisional(id) {
		respondError(w, http.StatusNotFound, "provisional identity not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"removed": id})
}
