package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrNoActiveMeeting is returned when attendance is recorded while no
// meeting is open.
var ErrNoActiveMeeting = errors.New("no active meeting")

// Member is an enrolled person. The embedding is the reference face
// descriptor captured at enrollment; Thumbnail holds the profile crop as
// JPEG bytes.
type Member struct {
	ID           int64
	Name         string
	Major        string
	Age          int
	Bio          string
	Embedding    []float32
	Thumbnail    []byte
	MeetingCount int
	CreatedAt    time.Time
}

// Meeting is the session attendance is deduplicated against. A meeting is
// active while EndTime is nil.
type Meeting struct {
	ID        string
	Title     string
	StartTime time.Time
	EndTime   *time.Time
}

// AttendanceRecord is one attendance mark.
type AttendanceRecord struct {
	ID        int64
	MemberID  int64
	MeetingID string
	Timestamp time.Time
}

// MemberStore persists enrolled members. Display names are unique.
type MemberStore interface {
	LoadAll(ctx context.Context) ([]Member, error)
	Get(ctx context.Context, id int64) (Member, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, m Member) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// AttendanceStore records attendance marks. Record returns false when the
// member already has a mark for the meeting; that uniqueness check is the
// single source of truth for attendance dedup.
type AttendanceStore interface {
	Record(ctx context.Context, memberID int64, meetingID string) (bool, error)
	ListForMeeting(ctx context.Context, meetingID string) ([]AttendanceRecord, error)
}

// MeetingStore manages sessions. Active returns ErrNoActiveMeeting when no
// meeting is open.
type MeetingStore interface {
	Active(ctx context.Context) (Meeting, error)
	Start(ctx context.Context, title string) (Meeting, error)
	End(ctx context.Context, id string) error
}
