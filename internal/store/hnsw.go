package store

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// memberIndexMaxNeighbors is the HNSW M parameter.
const memberIndexMaxNeighbors = 16

// MemberIndex is an in-memory approximate nearest neighbor index over member
// embeddings. It backs the duplicate-face check during bulk import, where
// the member set can be large enough that linear scans per image hurt.
type MemberIndex struct {
	graph *hnsw.Graph[int64]
	byID  map[int64]*Member
	mu    sync.RWMutex
}

// NewMemberIndex builds an index from the given members. Members without an
// embedding are skipped.
func NewMemberIndex(members []Member) *MemberIndex {
	g := hnsw.NewGraph[int64]()
	g.M = memberIndexMaxNeighbors
	g.Ml = 1.0 / float64(memberIndexMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	idx := &MemberIndex{
		graph: g,
		byID:  make(map[int64]*Member, len(members)),
	}
	for i := range members {
		m := &members[i]
		if len(m.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(m.ID, m.Embedding))
		idx.byID[m.ID] = m
	}
	return idx
}

// Add inserts one member into the index.
func (idx *MemberIndex) Add(m Member) {
	if len(m.Embedding) == 0 {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.graph.Add(hnsw.MakeNode(m.ID, m.Embedding))
	idx.byID[m.ID] = &m
}

// Len returns the number of indexed members.
func (idx *MemberIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byID)
}

// Search returns up to k nearest members with their Euclidean distances.
func (idx *MemberIndex) Search(query []float32, k int) ([]Member, []float64, error) {
	if len(query) == 0 {
		return nil, nil, errors.New("empty query embedding")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.byID) == 0 {
		return nil, nil, nil
	}

	neighbors := idx.graph.Search(query, k)

	members := make([]Member, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		m, ok := idx.byID[n.Key]
		if !ok {
			continue
		}
		members = append(members, *m)
		distances = append(distances, float64(hnsw.EuclideanDistance(query, n.Value)))
	}
	return members, distances, nil
}
