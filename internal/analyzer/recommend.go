package analyzer

import (
	"sort"
	"strings"

	"sjsage522/dealfinder/internal/models"
)

// DefaultRecommendationFloor is the minimum quality score for a recommendation
const DefaultRecommendationFloor = 70

// KeywordSource resolves a category name to its keyword stems
type KeywordSource interface {
	Keywords(name string) []string
}

// RecommendationEngine filters and ranks scored deals for a user
type RecommendationEngine struct {
	floor    int
	keywords KeywordSource
}

// NewRecommendationEngine creates an engine. keywords may be nil, in which case category
// filters only match on the category name itself.
func NewRecommendationEngine(keywords KeywordSource, floor int) *RecommendationEngine {
	if floor <= 0 {
		floor = DefaultRecommendationFloor
	}
	return &RecommendationEngine{floor: floor, keywords: keywords}
}

// Recommend returns the deals matching prefs, best first. Ties on quality are broken by
// discount; remaining ties keep their input order. deals is not modified.
func (e *RecommendationEngine) Recommend(deals []models.Deal, prefs models.UserPreferences) []models.Deal {
	floor := e.floor
	if prefs.QualityFloor > floor {
		floor = prefs.QualityFloor
	}
	minDiscount := prefs.ClampedMinDiscount()
	terms := e.categoryTerms(prefs.Categories)

	out := make([]models.Deal, 0, len(deals))
	for _, deal := range deals {
		if deal.QualityScore < floor {
			continue
		}
		if prefs.HasPriceLimit() && deal.Price > prefs.MaxPrice {
			continue
		}
		if len(terms) > 0 && !matchesAny(deal.Title, terms) {
			continue
		}
		if minDiscount > 0 && deal.DiscountPercentage < minDiscount {
			continue
		}
		out = append(out, deal)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].QualityScore != out[j].QualityScore {
			return out[i].QualityScore > out[j].QualityScore
		}
		return out[i].DiscountPercentage > out[j].DiscountPercentage
	})
	return out
}

func (e *RecommendationEngine) categoryTerms(categories []string) []string {
	var terms []string
	for _, category := range categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if category == "" {
			continue
		}
		terms = append(terms, category)
		if e.keywords != nil {
			terms = append(terms, e.keywords.Keywords(category)...)
		}
	}
	return terms
}

func matchesAny(title string, terms []string) bool {
	title = strings.ToLower(title)
	for _, term := range terms {
		if strings.Contains(title, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
