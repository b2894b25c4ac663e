package models

import "math"

// UserPreferences holds the filters applied at recommendation time
type UserPreferences struct {
	MaxPrice     float64  `toml:"max_price" json:"max_price"`
	MinDiscount  float64  `toml:"min_discount" json:"min_discount"`
	Categories   []string `toml:"categories" json:"categories"`
	QualityFloor int      `toml:"quality_floor" json:"quality_floor"`
}

// NoPriceLimit is the unbounded max price sentinel
var NoPriceLimit = math.Inf(1)

// DefaultPreferences mirrors the interactive defaults: no price cap, 20% discount
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		MaxPrice:    NoPriceLimit,
		MinDiscount: 20,
	}
}

// HasPriceLimit reports whether MaxPrice bounds the results.
// Zero, negative and infinite values mean no limit.
func (p UserPreferences) HasPriceLimit() bool {
	return p.MaxPrice > 0 && !math.IsInf(p.MaxPrice, 1) && !math.IsNaN(p.MaxPrice)
}

// ClampedMinDiscount returns MinDiscount limited to 0-100
func (p UserPreferences) ClampedMinDiscount() float64 {
	return math.Max(0, math.Min(100, p.MinDiscount))
}
