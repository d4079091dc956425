package identity

import (
	"image"
	"time"
)

// Known is an identity backed by a member record in the external store.
// The embedding is a reference copy refreshed on every positive match.
type Known struct {
	Name      string
	MemberID  int64 // 0 when the member reference is unknown
	Embedding []float32
	Thumbnail image.Image
	InView    bool
	LastSeen  time.Time // zero until actually observed this session
}

// Provisional is a session-local identity tracked only by embedding and
// thumbnail continuity. IDs have the shape unknown_<n> and are never reused
// within a process lifetime.
type Provisional struct {
	ID        string
	Embedding []float32
	Thumbnail image.Image
	InView    bool
	LastSeen  time.Time
}

// Observation is one detected face in one processed frame.
type Observation struct {
	BBox      image.Rectangle
	Embedding []float32
	Thumbnail image.Image
}

// Kind discriminates summary entries.
type Kind string

const (
	KindKnown       Kind = "known"
	KindProvisional Kind = "unknown"
)

// Summary is one entry of a recognition snapshot.
type Summary struct {
	Name          string  `json:"name"`
	MemberID      int64   `json:"member_id,omitempty"`
	InView        bool    `json:"in_view"`
	LastSeen      int64   `json:"last_seen"` // unix seconds
	TimeSinceSeen float64 `json:"time_since_seen"`
	Kind          Kind    `json:"kind"`
	ThumbnailKey  string  `json:"thumbnail_key"`
}

// Snapshot is the recognition state as of some completed frame.
type Snapshot struct {
	Timestamp int64     `json:"timestamp"`
	Faces     []Summary `json:"faces"`
}

// Profile holds the thresholds for embedding comparison. Tolerance bounds
// the Euclidean distance; CosineFloor, when positive, additionally requires
// the cosine similarity to reach it (two-stage accept).
type Profile struct {
	Tolerance   float64
	CosineFloor float64
}

// DefaultProfile matches the behavior of common 128-dim face descriptors.
var DefaultProfile = Profile{Tolerance: 0.6}
