package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"intentrouter/internal/chunker"
	"intentrouter/internal/domain"
	"intentrouter/internal/heuristic"
	"intentrouter/internal/logger"
	"intentrouter/internal/profile"
)

// Embedder is the part of the embedding gateway the classifier needs.
// Returned vectors must be unit length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedAll(ctx context.Context, texts []string) ([][]float64, error)
}

// ProfileSource serves the category profiles, building them on first use.
type ProfileSource interface {
	Profiles(ctx context.Context) (*profile.Set, error)
	Warm() bool
}

// Path names the route a classification took.
type Path string

const (
	PathShortCircuit Path = "short_circuit"
	PathTrivial      Path = "trivial"
	PathChunked      Path = "chunked"
)

// Result is a classification with the details callers may want to report.
type Result struct {
	Decisions []domain.Decision
	Path      Path
	Sentences int
	Chunks    int
	// Final holds the aggregated per-category scores on the chunked path
	// and the boosted scores on the trivial path.
	Final domain.Scores
	// Fingerprint identifies the configuration the decisions were made under.
	Fingerprint string
	// Fallback is set when no category reached the decision threshold on the
	// chunked path. A trivial or short-circuit answer is never a fallback,
	// even when it names the fallback category.
	Fallback bool
}

// Classifier routes a message to one or more categories.
// It is safe for concurrent use.
type Classifier struct {
	embedder  Embedder
	profiles  ProfileSource
	store     domain.CentroidStore
	heuristic *heuristic.Heuristic
	log       *logger.Logger
	tracer    trace.Tracer
	scope     string

	params atomic.Pointer[Params]
}

func New(embedder Embedder, profiles ProfileSource, store domain.CentroidStore, h *heuristic.Heuristic, params Params, log *logger.Logger) (*Classifier, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	if h == nil {
		h = heuristic.New(heuristic.DefaultParams(), log)
	}
	c := &Classifier{
		embedder:  embedder,
		profiles:  profiles,
		store:     store,
		heuristic: h,
		log:       log,
		tracer:    otel.Tracer("intentrouter/classifier"),
	}
	if f, ok := profiles.(interface{ Fingerprint() string }); ok {
		c.scope = "catalog=" + f.Fingerprint()
	}
	if e, ok := embedder.(interface{ Identity() string }); ok {
		c.scope += "\x00embedder=" + e.Identity()
	}
	c.params.Store(&params)
	return c, nil
}

// Params returns a copy of the current parameters.
func (c *Classifier) Params() Params { return *c.params.Load() }

// SetParams replaces the parameters. Calls already running keep the set
// they started with.
func (c *Classifier) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.params.Store(&p)
	return nil
}

// Fingerprint identifies everything besides the message and role that a
// decision depends on: the current parameters, the heuristic parameters,
// the catalog and the embedding model. It changes with SetParams.
func (c *Classifier) Fingerprint() string { return c.fingerprint(c.Params()) }

func (c *Classifier) fingerprint(p Params) string {
	h := sha256.New()
	fmt.Fprintf(h, "%+v\x00%+v\x00%s", p, c.heuristic.Params(), c.scope)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Warm reports whether the category profiles are built.
func (c *Classifier) Warm() bool { return c.profiles.Warm() }

// Classify returns the ordered decisions for text sent by a user with role.
// The list is never empty on success.
func (c *Classifier) Classify(ctx context.Context, text, role string) ([]domain.Decision, error) {
	res, err := c.Evaluate(ctx, text, role)
	if err != nil {
		return nil, err
	}
	return res.Decisions, nil
}

// Evaluate is Classify with path and size details.
func (c *Classifier) Evaluate(ctx context.Context, text, role string) (res *Result, err error) {
	p := c.Params()
	ctx, span := c.tracer.Start(ctx, "classifier.classify", trace.WithAttributes(attribute.String("role", role)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			res.Fingerprint = c.fingerprint(p)
			span.SetAttributes(
				attribute.String("classify.path", string(res.Path)),
				attribute.Int("classify.sentences", res.Sentences),
				attribute.Int("classify.chunks", res.Chunks),
				attribute.Int("classify.decisions", len(res.Decisions)),
			)
		}
		span.End()
	}()

	if p.isNoAgency(role) {
		c.log.Debug("classified", "path", PathShortCircuit, "role", role)
		return &Result{
			Decisions: []domain.Decision{{Category: domain.FallbackCategory, Score: 1.0}},
			Path:      PathShortCircuit,
		}, nil
	}

	set, err := c.profiles.Profiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("build profiles: %w", err)
	}
	tokens := set.Tokens()

	sentences := chunker.NewSegmenter(p.MinSentenceLength).Segment(text)
	if len(sentences) <= 1 {
		res, err = c.trivial(ctx, text, role, tokens)
		if err != nil {
			return nil, err
		}
		res.Sentences = len(sentences)
		return res, nil
	}
	return c.chunked(ctx, sentences, role, tokens, p)
}

func (c *Classifier) trivial(ctx context.Context, text, role string, tokens profile.TokenSets) (*Result, error) {
	scores, err := c.scoreText(ctx, text)
	if err != nil {
		return nil, err
	}
	boosted := c.heuristic.Apply(scores, role, text, tokens)
	top, score := boosted.Top()
	c.log.Debug("classified", "path", PathTrivial, "category", top.String(), "score", score)
	return &Result{
		Decisions: []domain.Decision{{Category: top, Score: score}},
		Path:      PathTrivial,
		Chunks:    1,
		Final:     boosted,
	}, nil
}

func (c *Classifier) chunked(ctx context.Context, sentences []string, role string, tokens profile.TokenSets, p Params) (*Result, error) {
	vectors, err := c.embedder.EmbedAll(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("embed sentences: %w", err)
	}
	chunks, err := chunker.NewSemanticChunker(p.ChunkSimilarityThreshold).Chunk(sentences, vectors)
	if err != nil {
		return nil, err
	}

	// Single-sentence chunks reuse the sentence embedding.
	chunkVectors := make([][]float64, len(chunks))
	var pending []string
	var pendingIdx []int
	for k, ch := range chunks {
		if len(ch.Sentences) == 1 {
			chunkVectors[k] = vectors[ch.Sentences[0]]
			continue
		}
		pending = append(pending, ch.Text)
		pendingIdx = append(pendingIdx, k)
	}
	if len(pending) > 0 {
		embedded, err := c.embedder.EmbedAll(ctx, pending)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		for j, k := range pendingIdx {
			chunkVectors[k] = embedded[j]
		}
	}

	classified := make([]domain.ChunkClassification, len(chunks))
	for k, ch := range chunks {
		scores, err := c.store.Score(ctx, chunkVectors[k])
		if err != nil {
			return nil, fmt.Errorf("score chunk %d: %w", k, err)
		}
		classified[k] = domain.ChunkClassification{
			Scores:   c.heuristic.Apply(scores, role, ch.Text, tokens),
			Position: ch.Position,
		}
	}

	final, decisions := aggregate(classified, p)
	c.log.Debug("classified",
		"path", PathChunked,
		"sentences", len(sentences),
		"chunks", len(chunks),
		"decisions", len(decisions),
	)
	return &Result{
		Decisions: decisions,
		Path:      PathChunked,
		Sentences: len(sentences),
		Chunks:    len(chunks),
		Final:     final,
		Fallback:  final.Max() < p.DecisionThreshold,
	}, nil
}

// ScoreText returns the cosine similarity of text to every category centroid.
func (c *Classifier) ScoreText(ctx context.Context, text string) (domain.Scores, error) {
	if _, err := c.profiles.Profiles(ctx); err != nil {
		return domain.Scores{}, fmt.Errorf("build profiles: %w", err)
	}
	return c.scoreText(ctx, text)
}

func (c *Classifier) scoreText(ctx context.Context, text string) (domain.Scores, error) {
	v, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return domain.Scores{}, fmt.Errorf("embed text: %w", err)
	}
	scores, err := c.store.Score(ctx, v)
	if err != nil {
		return domain.Scores{}, fmt.Errorf("score text: %w", err)
	}
	return scores, nil
}

// ApplyRoleHeuristic boosts scores for role. text is optional and enables
// the lexical bonus, which needs the category token sets.
func (c *Classifier) ApplyRoleHeuristic(ctx context.Context, scores domain.Scores, role, text string) (domain.Scores, error) {
	var tokens profile.TokenSets
	if text != "" {
		set, err := c.profiles.Profiles(ctx)
		if err != nil {
			return scores, fmt.Errorf("build profiles: %w", err)
		}
		tokens = set.Tokens()
	}
	return c.heuristic.Apply(scores, role, text, tokens), nil
}
