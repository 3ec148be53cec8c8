package vectorstore

import "ragqa/internal/domain"

// Storage holds vectors with their chunks and supports similarity search.
type Storage interface {
	Init(dimension int) error
	Upsert(chunks []domain.Chunk, vectors [][]float32) error
	Search(vector []float32, topK int) ([]domain.SearchResult, error)
	Clear() error
	Len() int
	Dimension() int
	// Entries returns the stored chunks and vectors in insertion order.
	Entries() ([]domain.Chunk, [][]float32)
}
