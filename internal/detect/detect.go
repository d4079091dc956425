// Package detect defines the face detection / embedding capability the
// engine consumes and its HTTP client implementation.
package detect

import (
	"context"
	"image"
)

// Detection is a single detected face: its location in the frame and the
// fixed-length descriptor used for identity matching.
type Detection struct {
	BBox      image.Rectangle
	Embedding []float32
	Score     float64
}

// Detector produces zero or more face detections for a frame.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]Detection, error)
}
