package models

import "time"

// PriceRange summarizes sale prices of a deal set
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// QualityDistribution counts deals per quality band
type QualityDistribution struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Fair      int `json:"fair"`
	Poor      int `json:"poor"`
}

// Report is an aggregate over a deal set. It has no lifecycle beyond the call that built it.
type Report struct {
	TotalDeals          int                 `json:"total_deals"`
	AvgDiscount         float64             `json:"avg_discount"`
	MaxDiscount         float64             `json:"max_discount"`
	AvgQualityScore     float64             `json:"avg_quality_score"`
	Retailers           map[string]int      `json:"retailers"`
	Categories          map[string]int      `json:"categories"`
	PriceRanges         PriceRange          `json:"price_ranges"`
	QualityDistribution QualityDistribution `json:"quality_distribution"`
	GeneratedAt         time.Time           `json:"generated_at"`
}
