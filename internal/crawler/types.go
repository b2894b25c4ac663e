package crawler

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/dealfinder/internal/models"
)

// PageFetcher returns a parsed document for a URL
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// StructureSource provides selectors for a page and learns from extraction outcomes
type StructureSource interface {
	Analyze(ctx context.Context, doc *goquery.Document, pageURL string) (models.SelectorSet, error)
	ReportExtraction(domain string, candidates int) bool
}

// DealExtractor turns a document into candidate deals
type DealExtractor interface {
	Extract(doc *goquery.Document, selectors models.SelectorSet, retailer, pageURL string) PageResult
}

var (
	_ StructureSource = (*StructureAnalyzer)(nil)
	_ DealExtractor   = (*ProductExtractor)(nil)
)
