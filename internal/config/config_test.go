package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedder.Type != "tfidf" || cfg.VectorStore.Type != "memory" {
		t.Fatalf("defaults: got embedder=%s store=%s", cfg.Embedder.Type, cfg.VectorStore.Type)
	}
	if cfg.Classifier.DecisionThreshold != 0.5 || cfg.Classifier.NoAgencyRole != "student" {
		t.Fatalf("classifier defaults: got %+v", cfg.Classifier)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeFile(t, `
classifier:
  decision_threshold: 0.6
  no_agency_role: guest
heuristic:
  max_boost: 0.1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Classifier.DecisionThreshold != 0.6 {
		t.Fatalf("decision_threshold: want=0.6 got=%v", cfg.Classifier.DecisionThreshold)
	}
	if cfg.Classifier.MinSentenceLength != 5 || cfg.Classifier.CoefCoverage != 0.3 {
		t.Fatalf("unset classifier fields lost defaults: %+v", cfg.Classifier)
	}
	if cfg.Classifier.NoAgencyRole != "guest" {
		t.Fatalf("no_agency_role: want=guest got=%q", cfg.Classifier.NoAgencyRole)
	}
	if cfg.Heuristic.MaxBoost != 0.1 || cfg.Heuristic.MinBoostDelta != 0.04 {
		t.Fatalf("heuristic: got %+v", cfg.Heuristic)
	}
}

func TestLoadFillsBackendDefaults(t *testing.T) {
	path := writeFile(t, `
embedder:
  type: OpenAI
vector_store:
  type: qdrant
cache:
  type: redis
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedder.Type != "openai" || cfg.Embedder.OpenAI == nil || cfg.Embedder.OpenAI.APIKeyEnv != "OPENAI_API_KEY" {
		t.Fatalf("openai defaults: got %+v", cfg.Embedder)
	}
	if r := cfg.Embedder.OpenAI.MaxRetries; r == nil || *r != 3 {
		t.Fatalf("openai max_retries default: want=3 got=%v", r)
	}
	if cfg.VectorStore.Qdrant == nil || cfg.VectorStore.Qdrant.Collection != "intent_centroids" {
		t.Fatalf("qdrant defaults: got %+v", cfg.VectorStore)
	}
	if cfg.Cache.Redis == nil || cfg.Cache.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis defaults: got %+v", cfg.Cache)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"embedder":  "embedder:\n  type: word2vec\n",
		"cache":     "cache:\n  type: memcached\n",
		"tracing":   "tracing:\n  exporter: jaeger\n",
		"threshold": "classifier:\n  coef_coverage: -1\n",
	}
	for name, body := range cases {
		if _, err := Load(writeFile(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Classifier.PositionBoost = 0.75
	cfg.Catalog.Path = "/etc/intentrouter/catalog.yaml"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "position_boost: 0.75") {
		t.Fatalf("saved yaml missing tunable:\n%s", data)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Classifier.PositionBoost != 0.75 || got.Catalog.Path != cfg.Catalog.Path {
		t.Fatalf("reloaded: got %+v", got)
	}
}

func TestLoadDefaultWritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	want := filepath.Join(home, ".config", "intentrouter", "config.yaml")
	if path != want {
		t.Fatalf("path: want=%s got=%s", want, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.Embedder.Type != "tfidf" {
		t.Fatalf("embedder: want=tfidf got=%s", cfg.Embedder.Type)
	}
}

func TestLoadKeepsExplicitZeroRetries(t *testing.T) {
	path := writeFile(t, `
embedder:
  type: openai
  openai:
    max_retries: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r := cfg.Embedder.OpenAI.MaxRetries; r == nil || *r != 0 {
		t.Fatalf("max_retries: want=0 got=%v", r)
	}

	path = writeFile(t, `
embedder:
  type: openai
  openai:
    max_retries: -1
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("Load: expected error for negative max_retries")
	}
}
