package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/face-attend/internal/store"
)

func TestMemberStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemberStore()

	id, err := s.Create(ctx, store.Member{Name: "alice", Embedding: []float32{1, 0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != "alice" {
		t.Errorf("expected alice, got %q", m.Name)
	}

	if _, err := s.Get(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemberStore_DuplicateName(t *testing.T) {
	ctx := context.Background()
	s := NewMemberStore()

	if _, err := s.Create(ctx, store.Member{Name: "alice"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Create(ctx, store.Member{Name: "alice"}); err == nil {
		t.Error("expected duplicate name to be rejected")
	}

	exists, err := s.ExistsByName(ctx, "alice")
	if err != nil || !exists {
		t.Errorf("expected alice to exist, got %v / %v", exists, err)
	}
}

func TestMemberStore_LoadAllSorted(t *testing.T) {
	ctx := context.Background()
	s := NewMemberStore()

	for _, name := range []string{"carol", "alice", "bob"} {
		if _, err := s.Create(ctx, store.Member{Name: name}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	members, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	for i, name := range want {
		if members[i].Name != name {
			t.Errorf("expected %q at index %d, got %q", name, i, members[i].Name)
		}
	}
}

func TestMemberStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemberStore()

	id, _ := s.Create(ctx, store.Member{Name: "alice"})
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAttendanceStore_RecordOnce(t *testing.T) {
	ctx := context.Background()
	s := NewAttendanceStore()

	fresh, err := s.Record(ctx, 1, "m1")
	if err != nil || !fresh {
		t.Fatalf("expected fresh record, got %v / %v", fresh, err)
	}

	fresh, err = s.Record(ctx, 1, "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh {
		t.Error("expected repeated record to be reported as already present")
	}

	// Same member, different meeting is a fresh mark.
	fresh, _ = s.Record(ctx, 1, "m2")
	if !fresh {
		t.Error("expected record in another meeting to be fresh")
	}

	records, err := s.ListForMeeting(ctx, "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record for m1, got %d", len(records))
	}
}

func TestMeetingStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMeetingStore()

	if _, err := s.Active(ctx); !errors.Is(err, store.ErrNoActiveMeeting) {
		t.Errorf("expected ErrNoActiveMeeting, got %v", err)
	}

	m, err := s.Start(ctx, "standup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID == "" || m.Title != "standup" {
		t.Errorf("unexpected meeting: %+v", m)
	}

	active, err := s.Active(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active.ID != m.ID {
		t.Errorf("expected active meeting %s, got %s", m.ID, active.ID)
	}

	if err := s.End(ctx, m.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Active(ctx); !errors.Is(err, store.ErrNoActiveMeeting) {
		t.Errorf("expected no active meeting after end, got %v", err)
	}

	if err := s.End(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
