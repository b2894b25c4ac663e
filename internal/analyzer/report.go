package analyzer

import (
	"math"
	"time"

	"sjsage522/dealfinder/internal/models"
)

// ReportGenerator summarizes deal sets
type ReportGenerator struct {
	now func() time.Time
}

// NewReportGenerator creates a generator stamping reports with now. A nil now uses time.Now.
func NewReportGenerator(now func() time.Time) *ReportGenerator {
	if now == nil {
		now = time.Now
	}
	return &ReportGenerator{now: now}
}

// Generate aggregates deals. An empty input gives a zeroed report with empty maps.
func (g *ReportGenerator) Generate(deals []models.Deal) models.Report {
	report := models.Report{
		TotalDeals:  len(deals),
		Retailers:   make(map[string]int),
		Categories:  make(map[string]int),
		GeneratedAt: g.now().UTC(),
	}
	if len(deals) == 0 {
		return report
	}

	var discountSum, qualitySum, priceSum float64
	report.MaxDiscount = math.Inf(-1)
	report.PriceRanges.Min = math.Inf(1)
	report.PriceRanges.Max = math.Inf(-1)

	for _, deal := range deals {
		discountSum += deal.DiscountPercentage
		qualitySum += float64(deal.QualityScore)
		priceSum += deal.Price

		report.MaxDiscount = math.Max(report.MaxDiscount, deal.DiscountPercentage)
		report.PriceRanges.Min = math.Min(report.PriceRanges.Min, deal.Price)
		report.PriceRanges.Max = math.Max(report.PriceRanges.Max, deal.Price)

		report.Retailers[deal.Retailer]++
		category := deal.Category
		if category == "" {
			category = models.Uncategorized
		}
		report.Categories[category]++

		switch {
		case deal.QualityScore >= 90:
			report.QualityDistribution.Excellent++
		case deal.QualityScore >= 70:
			report.QualityDistribution.Good++
		case deal.QualityScore >= 50:
			report.QualityDistribution.Fair++
		default:
			report.QualityDistribution.Poor++
		}
	}

	n := float64(len(deals))
	report.AvgDiscount = discountSum / n
	report.AvgQualityScore = qualitySum / n
	report.PriceRanges.Avg = priceSum / n
	return report
}
