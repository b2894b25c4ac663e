package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/dealfinder/config"
	"sjsage522/dealfinder/internal/analyzer"
	"sjsage522/dealfinder/internal/crawler"
	"sjsage522/dealfinder/internal/metrics"
	"sjsage522/dealfinder/internal/reasoning"
	"sjsage522/dealfinder/logger"
	"sjsage522/dealfinder/services/cache"
	"sjsage522/dealfinder/services/publisher"
	"sjsage522/dealfinder/services/store"
	"sjsage522/dealfinder/services/worker"

	"github.com/joho/godotenv"
)

const usage = `usage: dealfinder [run|once|report|recommend]

  run        crawl every CRAWL_INTERVAL_SECONDS until interrupted (default)
  once       crawl every target once and exit
  report     print summary statistics over stored deals as JSON
  recommend  print stored deals matching the configured preferences as JSON`

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	mode := "run"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	// Load and validate configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set up context with cancellation
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "run", "once":
		err = crawl(ctx, cfg, mode == "once")
	case "report", "recommend":
		err = query(ctx, cfg, mode)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Error().Err(err).Str("mode", mode).Msg("Exited with error")
		os.Exit(1)
	}
	log.Info().Str("mode", mode).Msg("Shut down gracefully")
}

func crawl(ctx context.Context, cfg *config.Config, once bool) error {
	log := logger.Default
	if err := cfg.ValidateCrawl(); err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("crawl_interval", cfg.CrawlInterval).
		Int("targets", len(cfg.Targets)).
		Msg("Starting application")

	services, err := initializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	m := metrics.Default()
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, m)
		defer srv.Shutdown(context.Background())
	}

	categorizer := crawler.NewCategorizer(cfg.Taxonomy)
	structure := crawler.NewStructureAnalyzer(services.Reasoning, cfg.ReinferAfter)
	seeded := crawler.SeedSelectors(structure, cfg.Targets)
	log.Info().Int("seeded_domains", seeded).Msg("Seeded selector sets")

	w := worker.NewWorker(
		crawler.NewFetcher(services.Cache, cfg.RateLimitBlock, cfg.FetchRPS),
		structure,
		crawler.NewProductExtractor(categorizer, crawler.NewImageResolver()),
		newScorer(services.Reasoning, cfg),
		services.Sinks(),
		m,
		worker.Options{
			Targets:       cfg.Targets,
			CrawlInterval: cfg.CrawlInterval,
			FetchWorkers:  cfg.FetchWorkers,
		},
	)

	if once {
		stats, err := w.RunOnce(ctx)
		log.Info().Interface("stats", stats).Msg("Crawl finished")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	log.Info().Msg("Starting deal worker")
	return w.Start(ctx)
}

func newScorer(service reasoning.Service, cfg *config.Config) *analyzer.QualityScorer {
	return analyzer.NewQualityScorer(service, analyzer.ScorerConfig{
		IngestionFloor: cfg.IngestionFloor,
		FallbackScore:  cfg.FallbackScore,
		Workers:        cfg.ScoreWorkers,
	})
}

// query answers report and recommend from the deal store
func query(ctx context.Context, cfg *config.Config, mode string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.SQLitePath == "" {
		return fmt.Errorf("%s needs SQLITE_PATH", mode)
	}

	dealStore, err := store.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer dealStore.Close()

	deals, err := dealStore.List(ctx, 0)
	if err != nil {
		return err
	}

	var out any
	switch mode {
	case "report":
		out = analyzer.NewReportGenerator(nil).Generate(deals)
	default:
		engine := analyzer.NewRecommendationEngine(crawler.NewCategorizer(cfg.Taxonomy), cfg.RecommendationFloor)
		out = engine.Recommend(deals, cfg.Preferences)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func serveMetrics(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Default.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	logger.Info("Serving metrics on %s/metrics", addr)
	return srv
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Store     store.DealStore
	Reasoning reasoning.Service
}

// Sinks returns the configured persistence sinks
func (s *Services) Sinks() []worker.DealSink {
	var sinks []worker.DealSink
	if s.Publisher != nil {
		sinks = append(sinks, worker.PublisherSink{Publisher: s.Publisher})
	}
	if s.Store != nil {
		sinks = append(sinks, worker.StoreSink{Store: s.Store})
	}
	return sinks
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize cache service
	if cfg.MemcacheAddr != "" {
		memcache := cache.NewMemcacheService(cfg.MemcacheAddr, 2*time.Second)
		if err := memcache.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unreachable, using in-process cache")
			services.Cache = cache.NewMemoryCache()
		} else {
			services.Cache = memcache
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	} else {
		services.Cache = cache.NewMemoryCache()
	}

	// Initialize publisher
	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(ctx); err != nil {
			redisPublisher.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		services.Publisher = redisPublisher
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	// Initialize deal store
	if cfg.SQLitePath != "" {
		dealStore, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			services.Cleanup()
			return nil, err
		}
		services.Store = dealStore
	}

	if services.Publisher == nil && services.Store == nil {
		return nil, fmt.Errorf("no persistence sink configured (REDIS_ADDR or SQLITE_PATH)")
	}

	services.Reasoning = reasoning.NewAnthropicService(reasoning.Config{
		APIKey:            cfg.AnthropicAPIKey,
		Model:             cfg.ReasoningModel,
		Timeout:           cfg.ReasoningTimeout,
		MaxRetries:        cfg.ReasoningMaxRetries,
		RequestsPerSecond: cfg.ReasoningRPS,
	})

	return services, nil
}
