package identity

import (
	"time"
)

// TrackerConfig tunes the per-frame lifecycle behavior.
type TrackerConfig struct {
	Profile        Profile
	MaxAge         time.Duration // provisional idle age before eviction
	SweepInterval  time.Duration // how often the eviction sweep runs
	MaxProvisional int           // hard cap on provisional entries, 0 = unlimited
}

// DefaultTrackerConfig mirrors the tuning the engine was built around:
// 0.6 tolerance, 5 minute idle eviction checked roughly every 10 seconds.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Profile:        DefaultProfile,
		MaxAge:         300 * time.Second,
		SweepInterval:  10 * time.Second,
		MaxProvisional: 64,
	}
}

// Tracker runs the per-frame identity lifecycle over a Table: visibility
// marking, known/provisional matching and the periodic eviction sweep.
// One Tracker is driven by the single frame pipeline; all table mutations
// for one frame happen under one lock acquisition, so snapshot readers
// always observe the state of a completed frame.
type Tracker struct {
	table     *Table
	cfg       TrackerConfig
	lastSweep time.Time

	// onRecognized fires for every known identity whose in-view state
	// transitions to true within a frame. Used for auto attendance
	// recording; must not block (it is called with the table unlocked).
	onRecognized func(memberID int64)
}

// NewTracker creates a tracker over the given table.
func NewTracker(table *Table, cfg TrackerConfig) *Tracker {
	if cfg.Profile.Tolerance == 0 {
		cfg.Profile = DefaultProfile
	}
	return &Tracker{table: table, cfg: cfg}
}

// OnRecognized registers a callback fired when a known identity comes into
// view after being absent or out of view. The callback runs outside the
// table lock and must tolerate duplicate invocations; attendance dedup
// belongs to the attendance store.
func (tr *Tracker) OnRecognized(fn func(memberID int64)) {
	tr.onRecognized = fn
}

// Table exposes the underlying identity table.
func (tr *Tracker) Table() *Table {
	return tr.table
}

// Track applies one frame's observations to the table and returns the
// member references recognized in this frame. Every identity starts the
// frame out of view and only a match marks it back in view.
func (tr *Tracker) Track(observations []Observation) []int64 {
	t := tr.table
	t.mu.Lock()

	now := t.now()

	// Remember who was visible last frame so in-view transitions can fire
	// the recognition callback after the lock is released.
	wasInView := make(map[string]bool, len(t.known))
	for _, k := range t.known {
		wasInView[k.Name] = k.InView
		k.InView = false
	}
	for _, p := range t.provisional {
		p.InView = false
	}

	knownEmbeddings := make([][]float32, len(t.known))
	for i, k := range t.known {
		knownEmbeddings[i] = k.Embedding
	}

	var recognized []int64
	var transitions []int64

	for _, obs := range observations {
		if len(obs.Embedding) == 0 {
			continue
		}

		idx, _, ok := BestMatch(knownEmbeddings, obs.Embedding, tr.cfg.Profile)
		if !ok {
			t.matchOrCreateProvisionalLocked(obs.Embedding, obs.Thumbnail, tr.cfg.Profile, now, tr.cfg.MaxProvisional)
			continue
		}

		k := t.known[idx]
		k.InView = true
		k.LastSeen = now
		k.Embedding = obs.Embedding
		if betterThumbnail(k.Thumbnail, obs.Thumbnail) {
			k.Thumbnail = obs.Thumbnail
		}

		if k.MemberID != 0 {
			recognized = append(recognized, k.MemberID)
			if !wasInView[k.Name] {
				transitions = append(transitions, k.MemberID)
			}
		}
	}

	if now.Sub(tr.lastSweep) >= tr.cfg.SweepInterval {
		tr.sweepLocked(now)
		tr.lastSweep = now
	}

	t.mu.Unlock()

	if tr.onRecognized != nil {
		for _, id := range transitions {
			tr.onRecognized(id)
		}
	}

	return recognized
}

// Sweep evicts idle provisional identities immediately, outside the frame
// cadence. Entries currently in view survive regardless of age.
func (tr *Tracker) Sweep() {
	t := tr.table
	t.mu.Lock()
	defer t.mu.Unlock()
	tr.sweepLocked(t.now())
}

func (tr *Tracker) sweepLocked(now time.Time) {
	t := tr.table
	kept := t.provisional[:0]
	for _, p := range t.provisional {
		if p.InView || now.Sub(p.LastSeen) <= tr.cfg.MaxAge {
			kept = append(kept, p)
		}
	}
	t.provisional = kept
}
