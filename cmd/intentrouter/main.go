package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"intentrouter/internal/cache"
	"intentrouter/internal/classifier"
	"intentrouter/internal/config"
	"intentrouter/internal/domain"
	"intentrouter/internal/embedding"
	"intentrouter/internal/embedding/openai"
	"intentrouter/internal/embedding/tfidf"
	"intentrouter/internal/heuristic"
	"intentrouter/internal/logger"
	"intentrouter/internal/metrics"
	"intentrouter/internal/observability"
	"intentrouter/internal/profile"
	"intentrouter/internal/service"
	"intentrouter/internal/tui"
	"intentrouter/internal/vectorstore/memory"
	"intentrouter/internal/vectorstore/qdrant"
)

const classifyTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	var cfgPath, role string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/intentrouter/config.yaml if not provided)")
	flag.StringVar(&role, "role", "", "Role of the sender (admin, teacher, analyst, ...)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: intentrouter [--config=config.yaml] [--role=teacher] [file1.txt ...]")
		fmt.Fprintln(os.Stderr, "Without files an interactive console starts.")
		flag.PrintDefaults()
	}
	flag.Parse()
	inputs := flag.Args()
	interactive := len(inputs) == 0

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logFile := cfg.Logging.File
	if interactive && logFile == "" {
		logFile = filepath.Join(os.TempDir(), "intentrouter.log")
	}
	lg, err := logger.NewWithOutput(cfg.Logging.Mode, logFile)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, lg, observability.TracingConfig{
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: "intentrouter",
	})
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Assemble components
	var factory embedding.Factory
	switch cfg.Embedder.Type {
	case "tfidf", "":
		factory = embedding.Static(tfidf.NewEmbedder())
	case "openai":
		ocfg := openai.Config{
			BaseURL:    cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv:  cfg.Embedder.OpenAI.APIKeyEnv,
			Model:      cfg.Embedder.OpenAI.Model,
			Timeout:    time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: *cfg.Embedder.OpenAI.MaxRetries,
		}
		factory = func(context.Context) (domain.Embedder, error) {
			client, err := openai.NewClient(ocfg)
			if err != nil {
				return nil, fmt.Errorf("openai embedder: %w", err)
			}
			return client, nil
		}
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}
	gateway := embedding.NewGateway(factory, cfg.Embedder.Concurrency).WithIdentity(embedderIdentity(cfg.Embedder))

	var store domain.CentroidStore
	switch cfg.VectorStore.Type {
	case "memory", "":
		store = memory.NewStorage()
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		store = qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     os.Getenv(q.APIKeyEnv),
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		})
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	catalog, err := profile.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	builder := profile.NewBuilder(catalog, gateway, store, lg)

	cls, err := classifier.New(gateway, builder, store, heuristic.New(cfg.Heuristic, lg), cfg.Classifier, lg)
	if err != nil {
		log.Fatalf("invalid classifier config: %v", err)
	}

	var decisionCache cache.Cache
	switch cfg.Cache.Type {
	case "none", "":
		decisionCache = cache.Nop{}
	case "memory":
		decisionCache = cache.NewMemory(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSecs)*time.Second)
	case "redis":
		r := cfg.Cache.Redis
		rc, err := cache.NewRedis(cache.RedisConfig{
			Addr:     r.Addr,
			Password: os.Getenv(r.PasswordEnv),
			DB:       r.DB,
			Prefix:   r.Prefix,
			TTL:      time.Duration(cfg.Cache.TTLSecs) * time.Second,
		})
		if err != nil {
			lg.Warn("redis cache unavailable, continuing without cache", "error", err)
			decisionCache = cache.Nop{}
		} else {
			defer rc.Close()
			decisionCache = rc
		}
	default:
		log.Fatalf("unknown cache: %s", cfg.Cache.Type)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		serveMetrics(ctx, lg, cfg.Metrics.Addr, m)
	}

	svc := service.NewRouterService(cls, decisionCache, m, lg)

	if !interactive {
		if err := runBatch(ctx, svc, inputs, role); err != nil {
			log.Fatalf("classification failed: %v", err)
		}
		return
	}

	model := tui.New(ctx, svc, roleCycle(role, cfg.Classifier.NoAgencyRole), classifyTimeout)
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Fatal(err)
	}
}

func runBatch(ctx context.Context, svc *service.RouterService, inputs []string, role string) error {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout*time.Duration(len(inputs)))
	defer cancel()
	results, err := svc.ClassifyFiles(ctx, inputs, role)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// roleCycle lists the roles the console cycles through, starting with the
// one given on the command line.
func roleCycle(first, noAgency string) []string {
	all := append([]string{""}, heuristic.Roles()...)
	if noAgency != "" {
		all = append(all, noAgency)
	}
	out := []string{first}
	for _, r := range all {
		if r != first {
			out = append(out, r)
		}
	}
	return out
}

func serveMetrics(ctx context.Context, lg *logger.Logger, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	lg.Info("metrics endpoint listening", "addr", addr)
}

// embedderIdentity names the embedding model behind the gateway.
func embedderIdentity(e config.EmbedderConfig) string {
	if e.Type == "openai" && e.OpenAI != nil {
		return e.Type + ":" + e.OpenAI.BaseURL + ":" + e.OpenAI.Model
	}
	return e.Type
}
