package vector

import "context"

// Document is one character's role fingerprint.
type Document struct {
	ID        string
	Dataset   string
	Character string
	Vector    []float32
	Metadata  map[string]string
}

// SearchResult is a single match from a similarity search.
type SearchResult struct {
	ID        string            `json:"id"`
	Score     float32           `json:"score"`
	Dataset   string            `json:"dataset"`
	Character string            `json:"character"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Repository provides vector storage and similarity search.
type Repository interface {
	// Upsert inserts or updates documents.
	Upsert(ctx context.Context, docs []Document) error
	// Search finds the top-k most similar documents. An empty dataset
	// searches every dataset.
	Search(ctx context.Context, vector []float32, topK int, dataset string) ([]SearchResult, error)
	// Close releases resources.
	Close() error
}
