// Package memory provides in-memory store implementations used by tests
// and storeless demo runs. Semantics mirror the postgres implementations,
// including the attendance uniqueness check.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attend/internal/store"
)

// MemberStore is an in-memory store.MemberStore.
type MemberStore struct {
	mu      sync.Mutex
	members map[int64]store.Member
	nextID  int64
}

func NewMemberStore() *MemberStore {
	return &MemberStore{members: make(map[int64]store.Member)}
}

func (s *MemberStore) LoadAll(_ context.Context) ([]store.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]store.Member, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members, nil
}

func (s *MemberStore) Get(_ context.Context, id int64) (store.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return store.Member{}, store.ErrNotFound
	}
	return m, nil
}

func (s *MemberStore) ExistsByName(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.members {
		if m.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemberStore) Create(_ context.Context, m store.Member) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.members {
		if existing.Name == m.Name {
			return 0, fmt.Errorf("member %q already exists", m.Name)
		}
	}

	s.nextID++
	m.ID = s.nextID
	m.CreatedAt = time.Now()
	s.members[m.ID] = m
	return m.ID, nil
}

func (s *MemberStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.members, id)
	return nil
}

// AttendanceStore is an in-memory store.AttendanceStore.
type AttendanceStore struct {
	mu      sync.Mutex
	records []store.AttendanceRecord
	seen    map[string]bool // member/meeting pairs already recorded
	nextID  int64
}

func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{seen: make(map[string]bool)}
}

func (s *AttendanceStore) Record(_ context.Context, memberID int64, meetingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%d/%s", memberID, meetingID)
	if s.seen[key] {
		return false, nil
	}

	s.seen[key] = true
	s.nextID++
	s.records = append(s.records, store.AttendanceRecord{
		ID:        s.nextID,
		MemberID:  memberID,
		MeetingID: meetingID,
		Timestamp: time.Now(),
	})
	return true, nil
}

func (s *AttendanceStore) ListForMeeting(_ context.Context, meetingID string) ([]store.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []store.AttendanceRecord
	for _, r := range s.records {
		if r.MeetingID == meetingID {
			records = append(records, r)
		}
	}
	return records, nil
}

// MeetingStore is an in-memory store.MeetingStore.
type MeetingStore struct {
	mu       sync.Mutex
	meetings []store.Meeting
}

func NewMeetingStore() *MeetingStore {
	return &MeetingStore{}
}

func (s *MeetingStore) Active(_ context.Context) (store.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Most recently started open meeting wins.
	for i := len(s.meetings) - 1; i >= 0; i-- {
		if s.meetings[i].EndTime == nil {
			return s.meetings[i], nil
		}
	}
	return store.Meeting{}, store.ErrNoActiveMeeting
}

func (s *MeetingStore) Start(_ context.Context, title string) (store.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := store.Meeting{
		ID:        uuid.NewString(),
		Title:     title,
		StartTime: time.Now(),
	}
	s.meetings = append(s.meetings, m)
	return m, nil
}

func (s *MeetingStore) End(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.meetings {
		if s.meetings[i].ID == id {
			now := time.Now()
			s.meetings[i].EndTime = &now
			return nil
		}
	}
	return store.ErrNotFound
}
