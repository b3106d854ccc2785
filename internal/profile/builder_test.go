package profile

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"intentrouter/internal/domain"
	"intentrouter/internal/embedding"
	"intentrouter/internal/embedding/embeddingtest"
	"intentrouter/internal/embedding/tfidf"
	"intentrouter/internal/vectorstore/memory"
)

func TestBuilderCentroidsAreUnitVectors(t *testing.T) {
	fake := embeddingtest.New(16)
	gw := embedding.NewGateway(embedding.Static(fake), 4)
	b := NewBuilder(DefaultCatalog(), gw, memory.NewStorage(), nil)

	set, err := b.Profiles(context.Background())
	if err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	for _, c := range domain.Categories() {
		p := set.Profiles[c]
		if p.Category != c {
			t.Fatalf("profile %s: category=%s", c, p.Category)
		}
		if math.Abs(embedding.Norm(p.Centroid)-1) > 1e-6 {
			t.Fatalf("centroid %s norm: got=%v", c, embedding.Norm(p.Centroid))
		}
		if len(p.Tokens) == 0 {
			t.Fatalf("profile %s has no tokens", c)
		}
	}
	if _, ok := set.Profiles[domain.QuizCreation].Tokens["quiz"]; !ok {
		t.Fatalf("curated quiz token missing")
	}
	if !b.Warm() {
		t.Fatalf("builder should be warm")
	}
}

func TestBuilderConcurrentCallersShareOneBuild(t *testing.T) {
	fake := embeddingtest.New(8)
	gw := embedding.NewGateway(embedding.Static(fake), 4)
	b := NewBuilder(DefaultCatalog(), gw, memory.NewStorage(), nil)

	var wg sync.WaitGroup
	sets := make([]*Set, 12)
	for i := range sets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := b.Profiles(context.Background())
			if err != nil {
				t.Errorf("Profiles: %v", err)
				return
			}
			sets[i] = s
		}()
	}
	wg.Wait()
	if fake.Prepares() != 1 {
		t.Fatalf("prepares: want=1 got=%d", fake.Prepares())
	}
	for i := 1; i < len(sets); i++ {
		if sets[i] != sets[0] {
			t.Fatalf("caller %d received a different profile set", i)
		}
	}
}

func TestBuilderFailureIsNotCached(t *testing.T) {
	fake := embeddingtest.New(8)
	boom := errors.New("gateway unavailable")
	fake.Fail(boom)
	gw := embedding.NewGateway(embedding.Static(fake), 2)
	b := NewBuilder(DefaultCatalog(), gw, memory.NewStorage(), nil)

	if _, err := b.Profiles(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Profiles: want gateway error got=%v", err)
	}
	if b.Warm() {
		t.Fatalf("failed build must not warm the builder")
	}
	fake.Fail(nil)
	if _, err := b.Profiles(context.Background()); err != nil {
		t.Fatalf("Profiles after recovery: %v", err)
	}
}

func TestBuilderWithTFIDF(t *testing.T) {
	gw := embedding.NewGateway(embedding.Static(tfidf.NewEmbedder()), 4)
	store := memory.NewStorage()
	b := NewBuilder(DefaultCatalog(), gw, store, nil)
	ctx := context.Background()
	if _, err := b.Profiles(ctx); err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	v, err := gw.Embed(ctx, "create a quiz about photosynthesis")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	scores, err := store.Score(ctx, v)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if top, _ := scores.Top(); top != domain.QuizCreation {
		t.Fatalf("top: want=quiz_creation got=%s (%v)", top, scores)
	}
}

type recordingStore struct {
	*memory.Storage
	calls []string
}

func (r *recordingStore) Clear(ctx context.Context) error {
	r.calls = append(r.calls, "clear")
	return r.Storage.Clear(ctx)
}

func (r *recordingStore) Init(ctx context.Context, dimension int) error {
	r.calls = append(r.calls, "init")
	return r.Storage.Init(ctx, dimension)
}

func TestBuilderClearsStoreBeforeInit(t *testing.T) {
	store := &recordingStore{Storage: memory.NewStorage()}
	gw := embedding.NewGateway(embedding.Static(embeddingtest.New(8)), 2)
	b := NewBuilder(DefaultCatalog(), gw, store, nil)
	if _, err := b.Profiles(context.Background()); err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	if len(store.calls) != 2 || store.calls[0] != "clear" || store.calls[1] != "init" {
		t.Fatalf("store calls: want=[clear init] got=%v", store.calls)
	}
}

func TestBuilderIgnoresCallerCancellation(t *testing.T) {
	gw := embedding.NewGateway(embedding.Static(embeddingtest.New(8)), 2)
	b := NewBuilder(DefaultCatalog(), gw, memory.NewStorage(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Profiles(ctx); err != nil {
		t.Fatalf("Profiles with cancelled caller: %v", err)
	}
	if !b.Warm() {
		t.Fatalf("builder should be warm")
	}
}

func TestCatalogFingerprint(t *testing.T) {
	a, b := DefaultCatalog(), DefaultCatalog()
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("equal catalogs: fingerprints differ")
	}
	b.Examples[domain.DataAnalysis] = append(b.Examples[domain.DataAnalysis], "plot weekly logins")
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatalf("edited catalog kept its fingerprint")
	}
}
