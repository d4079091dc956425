package identity

import (
	"log"
	"math"
	"sync"
)

// EuclideanDistance computes the Euclidean distance between two embeddings.
// Returns +Inf for mismatched dimensions or empty vectors so that malformed
// candidates can never win a match.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineSimilarity computes the cosine similarity between two embeddings.
// Returns -1 (worst case) for invalid input or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return -1
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return similarity
}

var badDimOnce sync.Once

// BestMatch scans candidates in order and returns the index of the closest
// one whose Euclidean distance to the probe is strictly below the profile
// tolerance. Ties break toward the first minimal index encountered, so the
// result is deterministic for a stable candidate order. Candidates with a
// dimensionality different from the probe are skipped (logged once per
// process, never fatal). Returns (-1, +Inf, false) when nothing qualifies,
// including for an empty candidate set.
func BestMatch(candidates [][]float32, probe []float32, p Profile) (int, float64, bool) {
	best := -1
	minDistance := math.Inf(1)

	for i, candidate := range candidates {
		if len(candidate) != len(probe) || len(candidate) == 0 {
			badDimOnce.Do(func() {
				log.Printf("skipping embedding with dimension %d, expected %d", len(candidate), len(probe))
			})
			continue
		}

		if d := EuclideanDistance(candidate, probe); d < minDistance {
			minDistance = d
			best = i
		}
	}

	if best < 0 || minDistance >= p.Tolerance {
		return -1, minDistance, false
	}

	if p.CosineFloor > 0 && CosineSimilarity(candidates[best], probe) < p.CosineFloor {
		return -1, minDistance, false
	}

	return best, minDistance, true
}
