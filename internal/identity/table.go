package identity

import (
	"fmt"
	"image"
	"sync"
	"time"
)

// Table is the shared store of known and provisional identities. It is
// mutated by the frame pipeline on every processed frame and read by HTTP
// request contexts, so every access goes through one coarse mutex. Update
// frequency is low (a handful of frames per second), so finer locking would
// buy nothing.
//
// Known identities are kept in insertion order; matching iterates that order
// so best-match tie-breaking stays deterministic.
type Table struct {
	mu          sync.Mutex
	known       []*Known
	knownByName map[string]*Known
	provisional []*Provisional
	counter     int // provisional id allocator, never reused

	now func() time.Time // injectable clock for tests
}

// NewTable creates an empty identity table.
func NewTable() *Table {
	return &Table{
		knownByName: make(map[string]*Known),
		now:         time.Now,
	}
}

// SeedKnown replaces the known identity set from the external member store.
// Seeded entries keep a zero LastSeen so they stay invisible in snapshots
// until actually observed this session. Provisional identities are untouched.
func (t *Table) SeedKnown(members []Known) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.known = t.known[:0]
	t.knownByName = make(map[string]*Known, len(members))
	for i := range members {
		m := members[i]
		if _, ok := t.knownByName[m.Name]; ok {
			continue // display names are unique; first one wins
		}
		k := &m
		t.known = append(t.known, k)
		t.knownByName[m.Name] = k
	}
}

// Reset drops all session state: provisional identities, the id counter and
// all known identities. The caller reloads members afterwards.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.known = nil
	t.knownByName = make(map[string]*Known)
	t.provisional = nil
	t.counter = 0
}

// Snapshot returns the recognition state as of the most recently completed
// frame. Known identities that were seeded but never observed this session
// are excluded.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	snap := Snapshot{Timestamp: now.Unix()}

	for _, k := range t.known {
		if k.LastSeen.IsZero() {
			continue
		}
		snap.Faces = append(snap.Faces, Summary{
			Name:          k.Name,
			MemberID:      k.MemberID,
			InView:        k.InView,
			LastSeen:      k.LastSeen.Unix(),
			TimeSinceSeen: now.Sub(k.LastSeen).Seconds(),
			Kind:          KindKnown,
			ThumbnailKey:  ThumbnailKey(k.Name),
		})
	}

	for _, p := range t.provisional {
		snap.Faces = append(snap.Faces, Summary{
			Name:          "Unknown",
			InView:        p.InView,
			LastSeen:      p.LastSeen.Unix(),
			TimeSinceSeen: now.Sub(p.LastSeen).Seconds(),
			Kind:          KindProvisional,
			ThumbnailKey:  p.ID,
		})
	}

	return snap
}

// Thumbnail looks up a face crop by key. Known identities match either their
// display name or its slugged form, provisional identities match their id.
func (t *Table) Thumbnail(key string) (image.Image, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, k := range t.known {
		if k.Name == key || ThumbnailKey(k.Name) == key {
			if k.Thumbnail == nil {
				return nil, false
			}
			return k.Thumbnail, true
		}
	}

	for _, p := range t.provisional {
		if p.ID == key {
			if p.Thumbnail == nil {
				return nil, false
			}
			return p.Thumbnail, true
		}
	}

	return nil, false
}

// RemoveProvisional drops a provisional identity by id. Returns false when
// the id does not resolve.
func (t *Table) RemoveProvisional(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeProvisionalLocked(id)
}

func (t *Table) removeProvisionalLocked(id string) bool {
	for i, p := range t.provisional {
		if p.ID == id {
			t.provisional = append(t.provisional[:i], t.provisional[i+1:]...)
			return true
		}
	}
	return false
}

// Counts returns the current number of known and provisional identities.
func (t *Table) Counts() (known, provisional int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.known), len(t.provisional)
}

// findProvisionalLocked returns the provisional entry for an id.
func (t *Table) findProvisionalLocked(id string) *Provisional {
	for _, p := range t.provisional {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// promoteLocked swaps a provisional identity for a known one as a single
// unit; a reader can never observe both entries or neither. Caller holds
// the lock.
func (t *Table) promoteLocked(provisionalID string, k Known) error {
	if _, exists := t.knownByName[k.Name]; exists {
		return fmt.Errorf("known identity %q already present", k.Name)
	}
	if !t.removeProvisionalLocked(provisionalID) {
		return fmt.Errorf("provisional identity %q not found", provisionalID)
	}

	kp := &k
	t.known = append(t.known, kp)
	t.knownByName[k.Name] = kp
	return nil
}
