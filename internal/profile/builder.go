package profile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"intentrouter/internal/domain"
	"intentrouter/internal/embedding"
	"intentrouter/internal/logger"
)

// Embedder is the part of the embedding gateway the builder needs.
type Embedder interface {
	Prepare(ctx context.Context, corpus []string) error
	EmbedAll(ctx context.Context, texts []string) ([][]float64, error)
}

// Profile is a category's centroid and lexical token set.
type Profile struct {
	Category domain.Category
	Centroid []float64
	Tokens   TokenSet
}

// Set is a complete, read-only profile set.
type Set struct {
	Profiles  [domain.NumCategories]Profile
	Dimension int
	BuiltAt   time.Time
}

// Tokens returns every category's token set.
func (s *Set) Tokens() TokenSets {
	var out TokenSets
	for c, p := range s.Profiles {
		out[c] = p.Tokens
	}
	return out
}

// Builder computes category profiles once and serves them afterwards.
// Concurrent callers during a cold start share a single build; a failed
// build is not remembered, so the next caller tries again.
type Builder struct {
	catalog  *Catalog
	embedder Embedder
	store    domain.CentroidStore
	log      *logger.Logger

	group   singleflight.Group
	set     atomic.Pointer[Set]
	timeout time.Duration
}

// BuildTimeout bounds a profile build. The build does not follow the
// cancellation of the caller that started it, since other callers may be
// waiting on the same build.
const BuildTimeout = 2 * time.Minute

func NewBuilder(catalog *Catalog, embedder Embedder, store domain.CentroidStore, log *logger.Logger) *Builder {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{catalog: catalog, embedder: embedder, store: store, log: log, timeout: BuildTimeout}
}

// Fingerprint identifies the catalog the profiles are built from.
func (b *Builder) Fingerprint() string { return b.catalog.Fingerprint() }

// Warm reports whether profiles have been built.
func (b *Builder) Warm() bool { return b.set.Load() != nil }

// Profiles returns the profile set, building it on first use.
func (b *Builder) Profiles(ctx context.Context) (*Set, error) {
	if s := b.set.Load(); s != nil {
		return s, nil
	}
	v, err, _ := b.group.Do("profiles", func() (any, error) {
		if s := b.set.Load(); s != nil {
			return s, nil
		}
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer cancel()
		s, err := b.build(buildCtx)
		if err != nil {
			return nil, err
		}
		b.set.Store(s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Set), nil
}

func (b *Builder) build(ctx context.Context) (set *Set, err error) {
	ctx, span := otel.Tracer("intentrouter/profile").Start(ctx, "profile.build")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	start := time.Now()

	var corpus []string
	var owner []domain.Category
	for _, c := range domain.Categories() {
		for _, ex := range b.catalog.Examples[c] {
			corpus = append(corpus, ex)
			owner = append(owner, c)
		}
	}
	span.SetAttributes(attribute.Int("profile.examples", len(corpus)))

	if err := b.embedder.Prepare(ctx, corpus); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}
	vectors, err := b.embedder.EmbedAll(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("embed examples: %w", err)
	}

	var grouped [domain.NumCategories][][]float64
	for i, v := range vectors {
		grouped[owner[i]] = append(grouped[owner[i]], v)
	}

	set = &Set{}
	centroids := make([][]float64, domain.NumCategories)
	for _, c := range domain.Categories() {
		mean, ok := embedding.Mean(grouped[c])
		if !ok {
			return nil, fmt.Errorf("centroid %s: %w", c, ErrEmptyCatalog)
		}
		centroid, err := embedding.Normalize(mean)
		if err != nil {
			return nil, fmt.Errorf("centroid %s: %w", c, err)
		}
		tokens := derivedTokens(b.catalog.Examples[c])
		if b.catalog.Tokens[c] != nil {
			tokens = curatedTokens(b.catalog.Tokens[c])
		}
		set.Profiles[c] = Profile{Category: c, Centroid: centroid, Tokens: tokens}
		centroids[c] = centroid
	}
	set.Dimension = len(centroids[0])
	if set.Dimension == 0 {
		return nil, errors.New("profile: embedder returned empty vectors")
	}

	if err := b.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear centroid store: %w", err)
	}
	if err := b.store.Init(ctx, set.Dimension); err != nil {
		return nil, fmt.Errorf("init centroid store: %w", err)
	}
	if err := b.store.Upsert(ctx, domain.Categories(), centroids); err != nil {
		return nil, fmt.Errorf("store centroids: %w", err)
	}
	set.BuiltAt = time.Now()

	b.log.Info("category profiles built",
		"categories", domain.NumCategories,
		"examples", len(corpus),
		"dimension", set.Dimension,
		"took", time.Since(start).String(),
	)
	return set, nil
}
