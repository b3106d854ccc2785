package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"intentrouter/internal/domain"
	"intentrouter/internal/embedding"
)

// Storage is an in-memory centroid store using brute-force dot products.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [domain.NumCategories][]float64
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = [domain.NumCategories][]float64{}
	return nil
}

func (s *Storage) Upsert(_ context.Context, categories []domain.Category, vectors [][]float64) error {
	if len(categories) != len(vectors) {
		return errors.New("categories and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		if !categories[i].Valid() {
			return fmt.Errorf("invalid category %d", int(categories[i]))
		}
	}
	for i, c := range categories {
		s.vectors[c] = append([]float64(nil), vectors[i]...)
	}
	return nil
}

// Score returns the similarity of vector to every stored centroid
// (vectors are assumed L2-normalized).
func (s *Storage) Score(_ context.Context, vector []float64) (domain.Scores, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out domain.Scores
	if len(vector) != s.dimension {
		return out, fmt.Errorf("query dimension %d, store dimension %d", len(vector), s.dimension)
	}
	for c, centroid := range s.vectors {
		if centroid == nil {
			return out, fmt.Errorf("no centroid for %s", domain.Category(c))
		}
		out[c] = embedding.Dot(centroid, vector)
	}
	return out, nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = [domain.NumCategories][]float64{}
	return nil
}
