package graph

import (
	"context"
	"sync"

	"github.com/efebarandurmaz/castgraph/internal/community"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

// MemoryRepository keeps datasets in process. It backs tests and runs
// without a graph database.
type MemoryRepository struct {
	mu       sync.RWMutex
	datasets map[string]*memoryDataset
}

type memoryDataset struct {
	edges []network.Edge
	props map[string]map[string]any // character -> property -> value
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{datasets: make(map[string]*memoryDataset)}
}

func (r *MemoryRepository) SaveGraph(_ context.Context, dataset string, g *network.Graph) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ds := r.dataset(dataset)
	ds.edges = g.Edges() // already ordered by (From, To)
	for _, name := range g.Nodes() {
		if _, ok := ds.props[name]; !ok {
			ds.props[name] = make(map[string]any)
		}
	}
	return nil
}

func (r *MemoryRepository) SaveScores(_ context.Context, dataset, metric string, values map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(dataset, ScoreProperty(metric), func(set func(string, any)) {
		for name, v := range values {
			set(name, v)
		}
	})
	return nil
}

func (r *MemoryRepository) SaveCommunities(_ context.Context, dataset, algorithm string, p community.Partition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(dataset, CommunityProperty(algorithm), func(set func(string, any)) {
		for name, id := range p {
			set(name, int64(id))
		}
	})
	return nil
}

// set writes a property on characters that already exist, matching the
// database store where unknown characters are skipped.
func (r *MemoryRepository) set(dataset, key string, each func(func(string, any))) {
	ds := r.dataset(dataset)
	each(func(name string, v any) {
		if props, ok := ds.props[name]; ok {
			props[key] = v
		}
	})
}

func (r *MemoryRepository) LoadRecords(_ context.Context, dataset string) ([]network.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.datasets[dataset]
	if !ok {
		return nil, nil
	}
	out := make([]network.Record, len(ds.edges))
	for i, e := range ds.edges {
		out[i] = network.Record{Source: e.From, Target: e.To, Weight: e.Weight}
	}
	return out, nil
}

// Property returns a stored character property.
func (r *MemoryRepository) Property(dataset, character, key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.datasets[dataset]
	if !ok {
		return nil, false
	}
	v, ok := ds.props[character][key]
	return v, ok
}

func (r *MemoryRepository) Close(context.Context) error { return nil }

func (r *MemoryRepository) dataset(name string) *memoryDataset {
	ds, ok := r.datasets[name]
	if !ok {
		ds = &memoryDataset{props: make(map[string]map[string]any)}
		r.datasets[name] = ds
	}
	return ds
}

var _ Repository = (*MemoryRepository)(nil)
