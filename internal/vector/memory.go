package vector

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryRepository is a brute-force cosine index held in process.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemory creates an empty in-memory index.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]Document)}
}

func (r *MemoryRepository) Upsert(_ context.Context, docs []Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range docs {
		d.Vector = append([]float32(nil), d.Vector...)
		r.docs[d.ID] = d
	}
	return nil
}

func (r *MemoryRepository) Search(_ context.Context, vec []float32, topK int, dataset string) ([]SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []SearchResult
	for _, d := range r.docs {
		if dataset != "" && d.Dataset != dataset {
			continue
		}
		out = append(out, SearchResult{
			ID:        d.ID,
			Score:     cosine(vec, d.Vector),
			Dataset:   d.Dataset,
			Character: d.Character,
			Metadata:  d.Metadata,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if topK >= 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// Len returns the number of stored documents.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func (r *MemoryRepository) Close() error { return nil }

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / math.Sqrt(na*nb))
}

var _ Repository = (*MemoryRepository)(nil)
