package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attend/internal/imgutil"
)

const streamFrameInterval = 100 * time.Millisecond

// StreamHandler serves the live annotated video feed.
type StreamHandler struct {
	engine *Engine
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(engine *Engine) *StreamHandler {
	return &StreamHandler{engine: engine}
}

// Stream writes an MJPEG multipart stream of the latest processed frames.
// It runs until the client disconnects.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.engine.Driver == nil {
		respondError(w, http.StatusServiceUnavailable, "capture pipeline not running")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(streamFrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame := h.engine.Driver.LatestProcessedFrame()
		if frame == nil {
			continue
		}

		buf, err := imgutil.EncodeJPEG(frame)
		if err != nil {
			continue
		}

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(buf)); err != nil {
			return
		}
		if _, err := w.Write(buf); err != nil {
			return
		}
		if _, err := fmt.Fprint(w, "\r\n"); err != nil {
			return
		}
		flusher.Flush()
	}
}

// Status reports the capture pipeline state.
func (h *StreamHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.engine.Driver == nil {
		respondError(w, http.StatusServiceUnavailable, "capture pipeline not running")
		return
	}

	respondJSON(w, http.StatusOK, h.engine.Driver.Status())
}
