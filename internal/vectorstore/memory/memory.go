package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/vec/search"

	"ragqa/internal/domain"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu         sync.RWMutex
	dimension  int
	vectors    [][]float32
	magnitudes []float32
	chunks     []domain.Chunk
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.magnitudes = nil
	s.chunks = nil
	return nil
}

func (s *Storage) Upsert(chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return errors.New("storage not initialized")
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector %d dimension %d, want %d", i, len(v), s.dimension)
		}
	}
	for _, v := range vectors {
		s.magnitudes = append(s.magnitudes, search.Float32s(v).Magnitude())
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Search returns the topK chunks by cosine similarity, highest first.
func (s *Storage) Search(vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension %d, want %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 4
	}
	query := search.Float32s(vector)
	qm := query.Magnitude()
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		if qm == 0 || s.magnitudes[i] == 0 {
			continue
		}
		scores[i] = 1 - float64(query.CosineDistance(s.vectors[i]))
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	// stable so ties keep source order
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Chunk: s.chunks[j], Score: scores[j]})
	}
	return results, nil
}

func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.magnitudes = nil
	s.chunks = nil
	return nil
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func (s *Storage) Entries() ([]domain.Chunk, [][]float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]domain.Chunk(nil), s.chunks...)
	vectors := append([][]float32(nil), s.vectors...)
	return chunks, vectors
}
