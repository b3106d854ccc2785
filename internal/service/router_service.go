package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"intentrouter/internal/cache"
	"intentrouter/internal/classifier"
	"intentrouter/internal/domain"
	"intentrouter/internal/logger"
	"intentrouter/internal/metrics"
)

// Classifier is the classification engine behind the service.
type Classifier interface {
	Evaluate(ctx context.Context, text, role string) (*classifier.Result, error)
	Fingerprint() string
	Warm() bool
}

// PathCache marks results served from the decision cache.
const PathCache classifier.Path = "cache"

// Routed is one routing answer.
type Routed struct {
	RequestID string
	Decisions []domain.Decision
	Path      classifier.Path
	Took      time.Duration
}

// FileResult is the routing answer for one input file.
type FileResult struct {
	Path      string            `json:"path"`
	Decisions []domain.Decision `json:"decisions"`
}

type RouterService struct {
	classifier Classifier
	cache      cache.Cache
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// NewRouterService wires the classifier to a cache and metrics. A nil cache
// disables caching and nil metrics record nothing.
func NewRouterService(cls Classifier, c cache.Cache, m *metrics.Metrics, log *logger.Logger) *RouterService {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RouterService{classifier: cls, cache: c, metrics: m, log: log}
}

// Warm reports whether the category profiles are built.
func (s *RouterService) Warm() bool { return s.classifier.Warm() }

// Route classifies text for role. Cache failures are logged and otherwise
// ignored; classification failures are returned unchanged.
func (s *RouterService) Route(ctx context.Context, text, role string) (*Routed, error) {
	start := time.Now()
	id := uuid.NewString()
	log := s.log.With("request_id", id, "role", role)
	key := cache.Key(s.classifier.Fingerprint(), role, text)

	decisions, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.ObserveCache("error")
		log.Warn("decision cache read failed", "error", err)
	case ok:
		s.metrics.ObserveCache("hit")
		log.Debug("decision cache hit", "text", text)
		return &Routed{RequestID: id, Decisions: decisions, Path: PathCache, Took: time.Since(start)}, nil
	default:
		s.metrics.ObserveCache("miss")
	}

	res, err := s.classifier.Evaluate(ctx, text, role)
	s.metrics.SetProfilesWarm(s.classifier.Warm())
	if err != nil {
		s.metrics.ObserveFailure()
		log.Error("classification failed", "text", text, "error", err)
		return nil, err
	}
	took := time.Since(start)

	categories := make([]string, len(res.Decisions))
	for i, d := range res.Decisions {
		categories[i] = d.Category.String()
	}
	s.metrics.ObserveClassification(string(res.Path), categories, res.Fallback, took)
	log.Info("classified",
		"text", text,
		"path", string(res.Path),
		"decisions", strings.Join(categories, ","),
		"took", took.String(),
	)

	if res.Path != classifier.PathShortCircuit {
		// Filed under the configuration the answer was computed with.
		if err := s.cache.Set(ctx, cache.Key(res.Fingerprint, role, text), res.Decisions); err != nil {
			s.metrics.ObserveCache("error")
			log.Warn("decision cache write failed", "error", err)
		}
	}
	return &Routed{RequestID: id, Decisions: res.Decisions, Path: res.Path, Took: took}, nil
}

// ClassifyFiles routes the content of every .txt file matched by paths,
// which may be glob patterns. The first failure stops the run.
func (s *RouterService) ClassifyFiles(ctx context.Context, paths []string, role string) ([]FileResult, error) {
	var files []string
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if strings.HasSuffix(strings.ToLower(m), ".txt") {
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .txt files found")
	}

	out := make([]FileResult, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		routed, err := s.Route(ctx, string(data), role)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		out = append(out, FileResult{Path: f, Decisions: routed.Decisions})
	}
	return out, nil
}
