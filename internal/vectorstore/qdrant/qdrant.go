package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"intentrouter/internal/domain"
)

// pointNamespace derives stable point IDs from category names.
var pointNamespace = uuid.MustParse("6f1c2d4e-8a0b-4c5d-9e7f-1a2b3c4d5e6f")

// Storage is a minimal REST client to Qdrant holding one point per category.
// It assumes cosine distance.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// PointID is the Qdrant point ID used for a category centroid.
func PointID(c domain.Category) string {
	return uuid.NewSHA1(pointNamespace, []byte(c.String())).String()
}

// Init makes sure the collection exists with the given vector size. An
// existing collection of another size is dropped and recreated.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	size, err := s.collectionSize(ctx)
	switch {
	case err == nil && size == dimension:
		return nil
	case err == nil:
		if err := s.Clear(ctx); err != nil {
			return err
		}
	case !isNotFound(err):
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.doJSON(ctx, http.MethodPut, s.collectionURL(), body, nil)
}

func (s *Storage) collectionSize(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodGet, s.collectionURL(), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Config.Params.Vectors.Size, nil
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

func (s *Storage) Upsert(ctx context.Context, categories []domain.Category, vectors [][]float64) error {
	if len(categories) != len(vectors) {
		return errors.New("categories and vectors length mismatch")
	}
	points := make([]map[string]any, len(categories))
	for i, c := range categories {
		if len(vectors[i]) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		points[i] = map[string]any{
			"id":      PointID(c),
			"vector":  vectors[i],
			"payload": map[string]any{"category": c.String()},
		}
	}
	body := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body, nil)
}

func (s *Storage) Score(ctx context.Context, vector []float64) (domain.Scores, error) {
	var out domain.Scores
	req := map[string]any{
		"vector":       vector,
		"limit":        domain.NumCategories,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return out, err
	}
	var seen [domain.NumCategories]bool
	for _, r := range resp.Result {
		name, _ := r.Payload["category"].(string)
		c, ok := domain.ParseCategory(name)
		if !ok {
			continue
		}
		out[c] = r.Score
		seen[c] = true
	}
	for c, ok := range seen {
		if !ok {
			return out, fmt.Errorf("qdrant: no centroid for %s", domain.Category(c))
		}
	}
	return out, nil
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	if err := s.doJSON(ctx, http.MethodDelete, s.collectionURL(), nil, nil); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

type statusError struct {
	method, url string
	code        int
	status      string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func (s *Storage) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, code: resp.StatusCode, status: resp.Status}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
