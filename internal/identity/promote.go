package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/face-attend/internal/imgutil"
	"github.com/kozaktomas/face-attend/internal/store"
)

var (
	// ErrDuplicateName rejects enrollment under a display name that already
	// belongs to a member.
	ErrDuplicateName = errors.New("display name already enrolled")
	// ErrUnknownProvisional rejects enrollment of a provisional id that does
	// not resolve.
	ErrUnknownProvisional = errors.New("provisional identity not found")
	// ErrNoEmbedding rejects enrollment of a provisional identity without a
	// usable embedding.
	ErrNoEmbedding = errors.New("provisional identity has no embedding")
)

// Metadata carries the free-form member fields collected at enrollment.
type Metadata struct {
	Major string
	Age   int
	Bio   string
}

// Coordinator turns provisional identities into enrolled members and drives
// the attendance side effect. Attendance dedup is owned entirely by the
// attendance store's uniqueness check; both the bulk path and the
// auto-record path lean on it rather than keeping their own bookkeeping.
type Coordinator struct {
	table      *Table
	members    store.MemberStore
	attendance store.AttendanceStore
	meetings   store.MeetingStore
}

// NewCoordinator wires the promotion and attendance coordinator.
func NewCoordinator(table *Table, members store.MemberStore, attendance store.AttendanceStore, meetings store.MeetingStore) *Coordinator {
	return &Coordinator{
		table:      table,
		members:    members,
		attendance: attendance,
		meetings:   meetings,
	}
}

// Promote enrolls a provisional identity as a member. The member store is
// authoritative for name uniqueness. On success the provisional entry is
// gone and the known identity is present, swapped as one unit under the
// table lock. Returns the new member reference.
func (c *Coordinator) Promote(ctx context.Context, provisionalID, name string, meta Metadata) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty name", ErrDuplicateName)
	}

	c.table.mu.Lock()
	p := c.table.findProvisionalLocked(provisionalID)
	if p == nil {
		c.table.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrUnknownProvisional, provisionalID)
	}
	if len(p.Embedding) == 0 {
		c.table.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrNoEmbedding, provisionalID)
	}
	embedding := append([]float32(nil), p.Embedding...)
	thumbnail := p.Thumbnail
	c.table.mu.Unlock()

	exists, err := c.members.ExistsByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("checking name %q: %w", name, err)
	}
	if exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	var thumbJPEG []byte
	if thumbnail != nil {
		if thumbJPEG, err = imgutil.EncodeJPEG(thumbnail); err != nil {
			log.Printf("encoding thumbnail for %q: %v", name, err)
			thumbJPEG = nil
		}
	}

	memberID, err := c.members.Create(ctx, store.Member{
		Name:      name,
		Major:     meta.Major,
		Age:       meta.Age,
		Bio:       meta.Bio,
		Embedding: embedding,
		Thumbnail: thumbJPEG,
	})
	if err != nil {
		return 0, fmt.Errorf("creating member %q: %w", name, err)
	}

	c.table.mu.Lock()
	err = c.table.promoteLocked(provisionalID, Known{
		Name:      name,
		MemberID:  memberID,
		Embedding: embedding,
		Thumbnail: thumbnail,
		InView:    true,
		LastSeen:  c.table.now(),
	})
	c.table.mu.Unlock()
	if err != nil {
		// The member row exists but the provisional vanished under us,
		// usually a racing reset. The table reload will pick the member up.
		return memberID, fmt.Errorf("promoting %s: %w", provisionalID, err)
	}

	log.Printf("promoted %s to member %q (id %d)", provisionalID, name, memberID)

	if _, err := c.recordOne(ctx, memberID); err != nil && !errors.Is(err, store.ErrNoActiveMeeting) {
		log.Printf("recording attendance for new member %d: %v", memberID, err)
	}

	return memberID, nil
}

// RecordAttendanceForRecognized records attendance for every known identity
// observed this session that carries a member reference. Members already
// recorded for the active meeting are skipped silently. Returns the number
// of newly written marks.
func (c *Coordinator) RecordAttendanceForRecognized(ctx context.Context) (int, error) {
	c.table.mu.Lock()
	seen := make(map[int64]bool)
	var memberIDs []int64
	for _, k := range c.table.known {
		if k.MemberID != 0 && !k.LastSeen.IsZero() && !seen[k.MemberID] {
			seen[k.MemberID] = true
			memberIDs = append(memberIDs, k.MemberID)
		}
	}
	c.table.mu.Unlock()

	if len(memberIDs) == 0 {
		return 0, nil
	}

	meeting, err := c.meetings.Active(ctx)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, id := range memberIDs {
		fresh, err := c.attendance.Record(ctx, id, meeting.ID)
		if err != nil {
			log.Printf("recording attendance for member %d: %v", id, err)
			continue
		}
		if fresh {
			recorded++
		}
	}

	return recorded, nil
}

// AutoRecordFunc returns a callback suitable for Tracker.OnRecognized: it
// records attendance for a member the moment they come into view, without
// ever blocking the frame pipeline on store I/O.
func (c *Coordinator) AutoRecordFunc() func(memberID int64) {
	return func(memberID int64) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := c.recordOne(ctx, memberID); err != nil && !errors.Is(err, store.ErrNoActiveMeeting) {
				log.Printf("auto-recording attendance for member %d: %v", memberID, err)
			}
		}()
	}
}

// recordOne records a single attendance mark against the active meeting.
func (c *Coordinator) recordOne(ctx context.Context, memberID int64) (bool, error) {
	meeting, err := c.meetings.Active(ctx)
	if err != nil {
		return false, err
	}
	return c.attendance.Record(ctx, memberID, meeting.ID)
}
