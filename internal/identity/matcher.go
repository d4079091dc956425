package identity

import (
	"fmt"
	"image"
	"log"
	"time"
)

// pixelArea returns the pixel area of a thumbnail, 0 for nil.
func pixelArea(img image.Image) int {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	return b.Dx() * b.Dy()
}

// betterThumbnail reports whether a replacement crop is worth keeping.
// The new crop must beat the stored one by more than 20% in pixel area,
// which stops the thumbnail from churning between marginally different
// crops of the same face.
func betterThumbnail(current, candidate image.Image) bool {
	if candidate == nil {
		return false
	}
	return float64(pixelArea(candidate)) > float64(pixelArea(current))*1.2
}

// matchOrCreateProvisionalLocked matches a probe embedding against the
// current provisional identities, refreshing the matched entry or creating
// a new unknown_<n> entry when nothing is close enough. Returns the id that
// claimed the observation. Caller holds the table lock, so the whole
// match-or-create step is consistent within one frame pass.
func (t *Table) matchOrCreateProvisionalLocked(probe []float32, thumbnail image.Image, p Profile, now time.Time, maxProvisional int) string {
	candidates := make([][]float32, len(t.provisional))
	for i, entry := range t.provisional {
		candidates[i] = entry.Embedding
	}

	if idx, _, ok := BestMatch(candidates, probe, p); ok {
		entry := t.provisional[idx]
		entry.InView = true
		entry.LastSeen = now
		entry.Embedding = probe
		if betterThumbnail(entry.Thumbnail, thumbnail) {
			entry.Thumbnail = thumbnail
		}
		return entry.ID
	}

	// Hard cap against unbounded growth under noisy input: drop the stalest
	// out-of-view entry to make room. If everything is in view the new face
	// still wins the slot of the oldest entry.
	if maxProvisional > 0 && len(t.provisional) >= maxProvisional {
		victim := 0
		for i, entry := range t.provisional {
			if !entry.InView && entry.LastSeen.Before(t.provisional[victim].LastSeen) {
				victim = i
			}
		}
		log.Printf("provisional cap reached (%d), dropping %s", maxProvisional, t.provisional[victim].ID)
		t.provisional = append(t.provisional[:victim], t.provisional[victim+1:]...)
	}

	t.counter++
	entry := &Provisional{
		ID:        fmt.Sprintf("unknown_%d", t.counter),
		Embedding: probe,
		Thumbnail: thumbnail,
		InView:    true,
		LastSeen:  now,
	}
	t.provisional = append(t.provisional, entry)
	log.Printf("tracking new unknown face %s", entry.ID)
	return entry.ID
}
