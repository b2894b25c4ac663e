// Package analyzer scores deals with the reasoning service and ranks and summarizes them.
package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/semaphore"

	"sjsage522/dealfinder/internal/models"
	"sjsage522/dealfinder/internal/reasoning"
	"sjsage522/dealfinder/logger"
	dealerrors "sjsage522/dealfinder/pkg/errors"
)

const (
	// DefaultIngestionFloor is the minimum quality score a deal needs to be stored
	DefaultIngestionFloor = 60
	// DefaultFallbackScore is applied when the service answers without a parseable score
	DefaultFallbackScore = 50
	// FailedScore is applied when the service call itself fails
	FailedScore = 0
	// AnalysisFailed replaces the analysis text when the service call fails
	AnalysisFailed = "Analysis failed"
	// DefaultScoreWorkers bounds concurrent reasoning calls
	DefaultScoreWorkers = 4
)

// ScorerConfig tunes a QualityScorer
type ScorerConfig struct {
	IngestionFloor int
	FallbackScore  int
	// Workers bounds concurrent service calls across every ScoreAll caller
	Workers int
}

// DefaultScorerConfig returns the documented defaults
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		IngestionFloor: DefaultIngestionFloor,
		FallbackScore:  DefaultFallbackScore,
		Workers:        DefaultScoreWorkers,
	}
}

// ScoreFailure pairs a deal with the error its scoring produced
type ScoreFailure struct {
	DealID string
	Err    error
}

// QualityScorer rates how genuine each deal is
type QualityScorer struct {
	service        reasoning.Service
	ingestionFloor int
	fallbackScore  int
	sem            *semaphore.Weighted
}

// NewQualityScorer creates a scorer. Zero config values take their defaults;
// a fallback score outside 0-100 is clamped.
func NewQualityScorer(service reasoning.Service, cfg ScorerConfig) *QualityScorer {
	defaults := DefaultScorerConfig()
	if cfg.IngestionFloor <= 0 {
		cfg.IngestionFloor = defaults.IngestionFloor
	}
	if cfg.FallbackScore <= 0 || cfg.FallbackScore > 100 {
		cfg.FallbackScore = defaults.FallbackScore
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}

	return &QualityScorer{
		service:        service,
		ingestionFloor: cfg.IngestionFloor,
		fallbackScore:  cfg.FallbackScore,
		sem:            semaphore.NewWeighted(int64(cfg.Workers)),
	}
}

// IngestionFloor returns the minimum score Admit keeps
func (s *QualityScorer) IngestionFloor() int {
	return s.ingestionFloor
}

// BuildPrompt renders the evaluation prompt for one deal
func BuildPrompt(deal models.Deal) string {
	return fmt.Sprintf(`Analyze this deal and provide insights:
Product: %s
Original Price: $%.2f
Sale Price: $%.2f
Retailer: %s

Please evaluate:
1. Is this a genuine deal or potentially misleading?
2. How does this price compare to typical market prices?
3. What's the value proposition for consumers?
4. Any red flags or concerns?

Provide a brief analysis and a deal quality score (0-100).`,
		deal.Title, deal.OriginalPrice, deal.Price, deal.Retailer)
}

// ParseScore reads the score from the first line mentioning "score". The text after the
// first colon on that line must start with an integer in 0-100. Only the leading integer
// is read, so "85/100" and "85 out of 100" score 85 instead of falling back.
func ParseScore(text string) (int, bool) {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), "score") {
			continue
		}

		_, value, found := strings.Cut(line, ":")
		if !found {
			return 0, false
		}
		value = strings.TrimFunc(value, func(r rune) bool {
			return unicode.IsSpace(r) || r == '*' || r == '_' || r == '`'
		})

		end := 0
		for end < len(value) && value[end] >= '0' && value[end] <= '9' {
			end++
		}
		if end == 0 {
			return 0, false
		}
		score, err := strconv.Atoi(value[:end])
		if err != nil || score < 0 || score > 100 {
			return 0, false
		}
		return score, true
	}
	return 0, false
}

// Score asks the reasoning service about one deal. The returned deal is always usable:
// a failed call yields FailedScore with valid=false, an unparseable answer yields the
// fallback score. The error, when not nil, is a reasoning_service or score_parse DealError.
func (s *QualityScorer) Score(ctx context.Context, deal models.Deal) (models.Deal, error) {
	text, err := s.service.Complete(ctx, BuildPrompt(deal))
	if err != nil {
		deal.QualityScore = FailedScore
		deal.AIAnalysis = AnalysisFailed
		deal.Valid = false
		return deal, dealerrors.NewReasoningService(deal.URL, "deal analysis failed", err)
	}

	deal.AIAnalysis = text
	deal.Valid = true

	score, ok := ParseScore(text)
	if !ok {
		deal.QualityScore = s.fallbackScore
		return deal, dealerrors.NewScoreParse(deal.URL)
	}
	deal.QualityScore = score
	return deal, nil
}

// ScoreAll scores deals concurrently, bounded by the scorer's shared worker limit.
// Output keeps input order. If ctx is cancelled, deals not yet fully scored are left out
// and ctx.Err() is returned.
func (s *QualityScorer) ScoreAll(ctx context.Context, deals []models.Deal) ([]models.Deal, []ScoreFailure, error) {
	scored := make([]*models.Deal, len(deals))
	errs := make([]error, len(deals))

	var wg sync.WaitGroup
	for i := range deals {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer s.sem.Release(1)

			deal, err := s.Score(ctx, deals[i])
			if ctx.Err() != nil {
				return
			}
			scored[i] = &deal
			errs[i] = err
		}(i)
	}
	wg.Wait()

	var out []models.Deal
	var failures []ScoreFailure
	log := logger.ForAnalyzer()
	for i := range scored {
		if scored[i] == nil {
			continue
		}
		out = append(out, *scored[i])
		if errs[i] != nil {
			failures = append(failures, ScoreFailure{DealID: scored[i].ID, Err: errs[i]})
			log.Warn().
				Str("retailer", scored[i].Retailer).
				Str("url", scored[i].URL).
				Str("error_type", string(dealerrors.TypeOf(errs[i]))).
				Int("quality_score", scored[i].QualityScore).
				Err(errs[i]).
				Msg("Deal scoring degraded")
		}
	}

	return out, failures, ctx.Err()
}

// Admit keeps deals whose quality score reaches the ingestion floor
func (s *QualityScorer) Admit(deals []models.Deal) []models.Deal {
	return Admit(deals, s.ingestionFloor)
}

// Admit keeps deals with QualityScore >= floor, preserving order
func Admit(deals []models.Deal, floor int) []models.Deal {
	admitted := make([]models.Deal, 0, len(deals))
	for _, deal := range deals {
		if deal.QualityScore >= floor {
			admitted = append(admitted, deal)
		}
	}
	return admitted
}
