package models

import (
	"math"
	"time"
)

// Uncategorized is the category assigned when no taxonomy keyword matches
const Uncategorized = "uncategorized"

// Deal represents a single extracted and scored promotional offer
type Deal struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Price              float64            `json:"price"`
	OriginalPrice      float64            `json:"original_price"`
	DiscountPercentage float64            `json:"discount_percentage"`
	Retailer           string             `json:"retailer"`
	URL                string             `json:"url"`
	ImageURL           *string            `json:"image_url"`
	Category           string             `json:"category"`
	CategoryConfidence map[string]float64 `json:"category_confidence"`
	Tags               []string           `json:"tags"`
	QualityScore       int                `json:"quality_score"`
	AIAnalysis         string             `json:"ai_analysis"`
	Valid              bool               `json:"valid"`
	Timestamp          time.Time          `json:"timestamp"`
}

// DiscountPercentage returns (original-price)/original*100 rounded to 2 places.
// Exact ties round half to even.
func DiscountPercentage(price, original float64) float64 {
	if original <= 0 {
		return 0
	}
	return round2((original - price) / original * 100)
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// Target is one retail page to crawl
type Target struct {
	URL      string `toml:"url" json:"url"`
	Retailer string `toml:"retailer" json:"retailer"`
	// Selectors, when set, is seeded for the target's domain instead of being inferred
	Selectors *SelectorSet `toml:"selectors" json:"selectors,omitempty"`
}
