// Package embeddingtest provides a deterministic in-process embedder for tests.
package embeddingtest

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"sync/atomic"
)

// Fake returns fixed vectors for known texts and a hash-seeded vector for
// anything else. It counts calls and can be made to fail.
type Fake struct {
	Dim int

	mu      sync.RWMutex
	vectors map[string][]float64
	err     error

	prepares atomic.Int64
	embeds   atomic.Int64
}

func New(dim int) *Fake {
	if dim <= 0 {
		dim = 8
	}
	return &Fake{Dim: dim, vectors: make(map[string][]float64)}
}

// Set pins the vector returned for text.
func (f *Fake) Set(text string, v []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[text] = append([]float64(nil), v...)
}

// Fail makes every subsequent call return err (nil restores normal behaviour).
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *Fake) Prepares() int64 { return f.prepares.Load() }
func (f *Fake) Embeds() int64   { return f.embeds.Load() }

func (f *Fake) Name() string   { return "fake" }
func (f *Fake) Dimension() int { return f.Dim }

func (f *Fake) Prepare(context.Context, []string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	f.prepares.Add(1)
	return f.err
}

func (f *Fake) Embed(_ context.Context, text string) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	f.embeds.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return append([]float64(nil), v...), nil
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	r := rand.New(rand.NewSource(int64(h.Sum64())))
	v := make([]float64, f.Dim)
	for i := range v {
		v[i] = r.Float64() + 0.01
	}
	return v, nil
}
