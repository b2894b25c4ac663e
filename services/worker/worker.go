package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sjsage522/dealfinder/helpers"
	"sjsage522/dealfinder/internal/analyzer"
	"sjsage522/dealfinder/internal/crawler"
	"sjsage522/dealfinder/internal/metrics"
	"sjsage522/dealfinder/internal/models"
	"sjsage522/dealfinder/logger"
	dealerrors "sjsage522/dealfinder/pkg/errors"
)

// persistTimeout bounds sink writes for deals that finished scoring before a shutdown
const persistTimeout = 10 * time.Second

// Scorer rates deals and applies the ingestion floor
type Scorer interface {
	ScoreAll(ctx context.Context, deals []models.Deal) ([]models.Deal, []analyzer.ScoreFailure, error)
	Admit(deals []models.Deal) []models.Deal
}

// RunStats counts what one run did
type RunStats struct {
	Pages             int `json:"pages"`
	PagesFailed       int `json:"pages_failed"`
	StructureFailures int `json:"structure_failures"`
	Discovered        int `json:"discovered"`
	Scored            int `json:"scored"`
	Admitted          int `json:"admitted"`
}

// Options configures the run loop
type Options struct {
	Targets       []models.Target
	CrawlInterval time.Duration
	FetchWorkers  int
}

// Worker handles the crawl, score and publish process
type Worker struct {
	fetcher   crawler.PageFetcher
	structure crawler.StructureSource
	extractor crawler.DealExtractor
	scorer    Scorer
	sinks     []DealSink
	metrics   *metrics.Metrics

	targets       []models.Target
	crawlInterval time.Duration
	fetchWorkers  int
}

// NewWorker creates a new worker
func NewWorker(
	fetcher crawler.PageFetcher,
	structure crawler.StructureSource,
	extractor crawler.DealExtractor,
	scorer Scorer,
	sinks []DealSink,
	m *metrics.Metrics,
	opts Options,
) *Worker {
	if opts.FetchWorkers <= 0 {
		opts.FetchWorkers = 1
	}
	if m == nil {
		m = metrics.Default()
	}
	return &Worker{
		fetcher:       fetcher,
		structure:     structure,
		extractor:     extractor,
		scorer:        scorer,
		sinks:         sinks,
		metrics:       m,
		targets:       opts.Targets,
		crawlInterval: opts.CrawlInterval,
		fetchWorkers:  opts.FetchWorkers,
	}
}

// Start runs the worker every crawl interval until ctx is cancelled
func (w *Worker) Start(ctx context.Context) error {
	log := logger.ForWorker()
	for {
		start := time.Now()
		stats, err := w.RunOnce(ctx)
		log.Info().
			Interface("stats", stats).
			Dur("elapsed", time.Since(start)).
			Msg("Crawl run finished")
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Crawl run failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.crawlInterval):
		}
	}
}

// RunOnce processes every target once. Failures are recovered per page and per deal;
// the returned error is ErrAllPagesFailed when no page yielded a selector set, or the
// context error after cancellation.
func (w *Worker) RunOnce(ctx context.Context) (RunStats, error) {
	start := time.Now()
	defer w.metrics.ObserveRun(start)

	var (
		mu    sync.Mutex
		stats RunStats
	)
	merge := func(s RunStats) {
		mu.Lock()
		defer mu.Unlock()
		stats.Pages += s.Pages
		stats.PagesFailed += s.PagesFailed
		stats.StructureFailures += s.StructureFailures
		stats.Discovered += s.Discovered
		stats.Scored += s.Scored
		stats.Admitted += s.Admitted
	}

	var g errgroup.Group
	g.SetLimit(w.fetchWorkers)
	for _, target := range w.targets {
		if ctx.Err() != nil {
			break
		}
		target := target
		g.Go(func() error {
			merge(w.processPage(ctx, target))
			return nil
		})
	}
	g.Wait()

	for _, sink := range w.sinks {
		if hook, ok := sink.(RunHook); ok {
			if err := hook.AfterRun(context.WithoutCancel(ctx)); err != nil {
				logger.LogError(sink.Name(), err, "after-run hook failed")
			}
		}
	}

	logger.ForWorker().Info().
		Int("discovered", stats.Discovered).
		Int("admitted", stats.Admitted).
		Int("pages", stats.Pages).
		Int("pages_failed", stats.PagesFailed).
		Msg("Run summary")

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if stats.Pages > 0 && stats.StructureFailures == stats.Pages {
		return stats, dealerrors.ErrAllPagesFailed
	}
	return stats, nil
}

func (w *Worker) processPage(ctx context.Context, target models.Target) RunStats {
	stats := RunStats{Pages: 1}
	domain := helpers.DomainOf(target.URL)
	retailer := crawler.RetailerFor(target)
	log := logger.ForCrawler(domain).WithField("retailer", retailer).WithField("url", target.URL)

	doc, err := w.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		stats.PagesFailed++
		w.metrics.PagesFailed.WithLabelValues(domain, errorLabel(err)).Inc()
		log.Warn().Str("error_type", errorLabel(err)).Err(err).Msg("Fetch failed")
		return stats
	}
	w.metrics.PagesFetched.WithLabelValues(domain).Inc()

	selectors, err := w.structure.Analyze(ctx, doc, target.URL)
	if err != nil {
		stats.PagesFailed++
		stats.StructureFailures++
		w.metrics.PagesFailed.WithLabelValues(domain, errorLabel(err)).Inc()
		log.Warn().Str("error_type", errorLabel(err)).Err(err).Msg("No usable page structure")
		return stats
	}

	result := w.extractor.Extract(doc, selectors, retailer, target.URL)
	if w.structure.ReportExtraction(domain, result.Candidates()) {
		w.metrics.StructureInvalidated.WithLabelValues(domain).Inc()
	}
	for _, failure := range result.Failures {
		w.metrics.ProductFailures.WithLabelValues(retailer, errorLabel(failure.Err)).Inc()
	}
	stats.Discovered = len(result.Deals)
	w.metrics.DealsDiscovered.WithLabelValues(retailer).Add(float64(len(result.Deals)))

	if len(result.Deals) == 0 || ctx.Err() != nil {
		return stats
	}

	scored, failures, err := w.scorer.ScoreAll(ctx, result.Deals)
	stats.Scored = len(scored)
	w.metrics.DealsScored.WithLabelValues(retailer).Add(float64(len(scored)))
	for _, failure := range failures {
		w.metrics.ScoreFailures.WithLabelValues(errorLabel(failure.Err)).Inc()
	}
	for _, deal := range scored {
		w.metrics.ScoreDistribution.Observe(float64(deal.QualityScore))
	}
	if err != nil {
		log.Info().Int("abandoned", len(result.Deals)-len(scored)).Msg("Scoring interrupted")
	}

	admitted := w.scorer.Admit(scored)
	stats.Admitted = len(admitted)
	w.metrics.DealsAdmitted.WithLabelValues(retailer).Add(float64(len(admitted)))
	w.persist(ctx, admitted)

	log.Info().
		Int("discovered", stats.Discovered).
		Int("admitted", stats.Admitted).
		Msg("Page processed")
	return stats
}

// persist hands fully scored deals to every sink. Deals that finished scoring are
// written even if shutdown started meanwhile.
func (w *Worker) persist(ctx context.Context, deals []models.Deal) {
	if len(deals) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	for _, deal := range deals {
		for _, sink := range w.sinks {
			if err := sink.Persist(ctx, deal); err != nil {
				w.metrics.PersistFailures.WithLabelValues(sink.Name()).Inc()
				logger.ForPublisher().Error().
					Str("sink", sink.Name()).
					Str("url", deal.URL).
					Err(err).
					Msg("Failed to persist deal")
			}
		}
	}
}

func errorLabel(err error) string {
	if t := dealerrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "unknown"
}
