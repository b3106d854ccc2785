package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"intentrouter/internal/domain"
)

type stubEmbedder struct {
	vec  []float64
	fail error
}

func (s *stubEmbedder) Name() string                            { return "stub" }
func (s *stubEmbedder) Prepare(context.Context, []string) error { return nil }
func (s *stubEmbedder) Dimension() int                          { return len(s.vec) }
func (s *stubEmbedder) Embed(context.Context, string) ([]float64, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	return append([]float64(nil), s.vec...), nil
}

func TestGatewayNormalizes(t *testing.T) {
	g := NewGateway(Static(&stubEmbedder{vec: []float64{3, 4}}), 2)
	v, err := g.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if math.Abs(v[0]-0.6) > 1e-12 || math.Abs(v[1]-0.8) > 1e-12 {
		t.Fatalf("normalized: want=[0.6 0.8] got=%v", v)
	}
	if g.Calls() != 1 {
		t.Fatalf("calls: want=1 got=%d", g.Calls())
	}
}

func TestGatewayZeroVector(t *testing.T) {
	g := NewGateway(Static(&stubEmbedder{vec: []float64{0, 0}}), 1)
	_, err := g.Embed(context.Background(), "x")
	if !errors.Is(err, ErrDegenerateVector) {
		t.Fatalf("want ErrDegenerateVector, got=%v", err)
	}
}

func TestGatewayPropagatesUpstreamError(t *testing.T) {
	boom := errors.New("model offline")
	g := NewGateway(Static(&stubEmbedder{fail: boom}), 1)
	if _, err := g.EmbedAll(context.Background(), []string{"a", "b", "c"}); !errors.Is(err, boom) {
		t.Fatalf("want upstream error, got=%v", err)
	}
}

func TestGatewayLazyInitOnce(t *testing.T) {
	var built atomic.Int32
	factory := func(context.Context) (domain.Embedder, error) {
		built.Add(1)
		return &stubEmbedder{vec: []float64{1, 0}}, nil
	}
	g := NewGateway(factory, 4)
	if g.Warm() {
		t.Fatalf("gateway should start cold")
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Embed(context.Background(), "x")
		}()
	}
	wg.Wait()
	if built.Load() != 1 {
		t.Fatalf("factory calls: want=1 got=%d", built.Load())
	}
	if !g.Warm() {
		t.Fatalf("gateway should be warm")
	}
}

func TestGatewayFactoryErrorNotCached(t *testing.T) {
	attempts := 0
	factory := func(context.Context) (domain.Embedder, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("unreachable")
		}
		return &stubEmbedder{vec: []float64{1}}, nil
	}
	g := NewGateway(factory, 1)
	if _, err := g.Embed(context.Background(), "x"); err == nil {
		t.Fatalf("first Embed: expected error")
	}
	if _, err := g.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("second Embed: %v", err)
	}
}

func TestEmbedAllKeepsOrder(t *testing.T) {
	g := NewGateway(Static(&stubEmbedder{vec: []float64{1, 1}}), 3)
	out, err := g.EmbedAll(context.Background(), []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("len: want=4 got=%d", len(out))
	}
	for i, v := range out {
		if math.Abs(Norm(v)-1) > 1e-9 {
			t.Fatalf("vector %d not unit: %v", i, v)
		}
	}
}

func TestMean(t *testing.T) {
	m, ok := Mean([][]float64{{1, 0}, {0, 1}})
	if !ok || m[0] != 0.5 || m[1] != 0.5 {
		t.Fatalf("Mean: got=%v ok=%v", m, ok)
	}
	if _, ok := Mean([][]float64{{1, 0}, {1}}); ok {
		t.Fatalf("Mean: expected failure on ragged input")
	}
}
