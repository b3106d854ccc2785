package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"intentrouter/internal/domain"
)

var ErrDegenerateVector = errors.New("embedding: vector has zero norm")

// Factory constructs the underlying embedder on first use.
type Factory func(ctx context.Context) (domain.Embedder, error)

// Static wraps an already constructed embedder.
func Static(e domain.Embedder) Factory {
	return func(context.Context) (domain.Embedder, error) { return e, nil }
}

// Gateway is the single entry point to the embedding model. The underlying
// embedder is built lazily, exactly once per successful construction, and
// every vector it hands out is unit length.
type Gateway struct {
	factory     Factory
	concurrency int
	identity    string

	mu    sync.Mutex
	inner domain.Embedder
	calls atomic.Int64
}

// NewGateway creates a cold gateway. concurrency bounds EmbedAll fan-out.
func NewGateway(factory Factory, concurrency int) *Gateway {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Gateway{factory: factory, concurrency: concurrency}
}

// WithIdentity names the model behind the gateway, for example
// "openai:text-embedding-3-small". Call it before the gateway is shared.
func (g *Gateway) WithIdentity(id string) *Gateway {
	g.identity = id
	return g
}

// Identity returns the name set by WithIdentity.
func (g *Gateway) Identity() string { return g.identity }

// Warm reports whether the underlying embedder has been constructed.
func (g *Gateway) Warm() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inner != nil
}

// Calls returns the number of successful Embed calls so far.
func (g *Gateway) Calls() int64 { return g.calls.Load() }

func (g *Gateway) embedder(ctx context.Context) (domain.Embedder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inner != nil {
		return g.inner, nil
	}
	if g.factory == nil {
		return nil, errors.New("embedding gateway has no factory")
	}
	e, err := g.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	g.inner = e
	return e, nil
}

func (g *Gateway) Name() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inner == nil {
		return "cold"
	}
	return g.inner.Name()
}

func (g *Gateway) Prepare(ctx context.Context, corpus []string) error {
	e, err := g.embedder(ctx)
	if err != nil {
		return err
	}
	return e.Prepare(ctx, corpus)
}

func (g *Gateway) Dimension() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inner == nil {
		return 0
	}
	return g.inner.Dimension()
}

// Embed returns the unit-normalized embedding of text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float64, error) {
	e, err := g.embedder(ctx)
	if err != nil {
		return nil, err
	}
	v, err := e.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%s embed: %w", e.Name(), err)
	}
	out, err := Normalize(v)
	if err != nil {
		return nil, fmt.Errorf("%s embed: %w", e.Name(), err)
	}
	g.calls.Add(1)
	return out, nil
}

// EmbedAll embeds texts concurrently; result i belongs to texts[i].
// The first failure cancels the remaining requests.
func (g *Gateway) EmbedAll(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	if _, err := g.embedder(ctx); err != nil {
		return nil, err
	}
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, text := range texts {
		eg.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			v, err := g.Embed(gctx, text)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
