package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/sync/singleflight"

	"sjsage522/dealfinder/helpers"
	"sjsage522/dealfinder/internal/models"
	"sjsage522/dealfinder/internal/reasoning"
	"sjsage522/dealfinder/logger"
	dealerrors "sjsage522/dealfinder/pkg/errors"
)

const (
	// DefaultReinferAfter is the number of consecutive empty pages that invalidates a domain's selectors
	DefaultReinferAfter = 3

	// maxBodyFeatures bounds the markup sent to the reasoning service
	maxBodyFeatures = 15000
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	htmlComment   = regexp.MustCompile(`(?s)<!--.*?-->`)
	codeFence     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// StructureAnalyzer infers and caches one SelectorSet per domain
type StructureAnalyzer struct {
	service      reasoning.Service
	reinferAfter int

	mu        sync.RWMutex
	selectors map[string]models.SelectorSet
	empty     map[string]int

	group singleflight.Group
}

// NewStructureAnalyzer creates an analyzer. reinferAfter <= 0 uses DefaultReinferAfter.
func NewStructureAnalyzer(service reasoning.Service, reinferAfter int) *StructureAnalyzer {
	if reinferAfter <= 0 {
		reinferAfter = DefaultReinferAfter
	}
	return &StructureAnalyzer{
		service:      service,
		reinferAfter: reinferAfter,
		selectors:    make(map[string]models.SelectorSet),
		empty:        make(map[string]int),
	}
}

// Analyze returns the SelectorSet for pageURL's domain, inferring it from doc on a cache miss
func (a *StructureAnalyzer) Analyze(ctx context.Context, doc *goquery.Document, pageURL string) (models.SelectorSet, error) {
	domain := helpers.DomainOf(pageURL)
	if domain == "" {
		return models.SelectorSet{}, dealerrors.NewStructureInference(pageURL, "page url has no host", nil)
	}

	if set, ok := a.Cached(domain); ok {
		return set, nil
	}

	v, err, shared := a.group.Do(domain, func() (interface{}, error) {
		// another flight may have stored it between our miss and this call
		if set, ok := a.Cached(domain); ok {
			return set, nil
		}

		set, err := a.infer(ctx, doc, pageURL, domain)
		if err != nil {
			return nil, err
		}

		a.mu.Lock()
		a.selectors[domain] = set
		a.empty[domain] = 0
		a.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return models.SelectorSet{}, err
	}

	if shared {
		logger.ForCrawler(domain).Debug().Msg("Joined in-flight structure inference")
	}
	return v.(models.SelectorSet), nil
}

// Cached returns the stored SelectorSet for domain, if any
func (a *StructureAnalyzer) Cached(domain string) (models.SelectorSet, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	set, ok := a.selectors[domain]
	return set, ok
}

// Seed stores a known SelectorSet for domain so it is never inferred
func (a *StructureAnalyzer) Seed(domain string, set models.SelectorSet) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selectors[domain] = set
	a.empty[domain] = 0
}

// Invalidate drops the cached SelectorSet for domain
func (a *StructureAnalyzer) Invalidate(domain string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.selectors, domain)
	delete(a.empty, domain)
}

// ReportExtraction records how many candidates a page produced. After reinferAfter
// consecutive empty pages the domain's selectors are invalidated. Returns true when
// that happened.
func (a *StructureAnalyzer) ReportExtraction(domain string, candidates int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.selectors[domain]; !ok {
		return false
	}
	if candidates > 0 {
		a.empty[domain] = 0
		return false
	}

	a.empty[domain]++
	if a.empty[domain] < a.reinferAfter {
		return false
	}

	delete(a.selectors, domain)
	delete(a.empty, domain)
	logger.ForCrawler(domain).Warn().
		Int("empty_pages", a.reinferAfter).
		Msg("Selectors invalidated after repeated empty extractions")
	return true
}

func (a *StructureAnalyzer) infer(ctx context.Context, doc *goquery.Document, pageURL, domain string) (models.SelectorSet, error) {
	if a.service == nil {
		return models.SelectorSet{}, dealerrors.NewStructureInference(domain, "no reasoning service configured", nil)
	}

	log := logger.ForCrawler(domain)
	log.Info().Str("url", pageURL).Msg("Inferring page structure")

	response, err := a.service.Complete(ctx, buildStructurePrompt(doc, pageURL))
	if err != nil {
		return models.SelectorSet{}, dealerrors.NewStructureInference(domain, "reasoning service call failed", err)
	}

	set, err := parseSelectorSet(response)
	if err != nil {
		return models.SelectorSet{}, dealerrors.NewStructureInference(domain, "unparseable selector response", err)
	}

	if err := validateSelectorSet(doc, set); err != nil {
		return models.SelectorSet{}, dealerrors.NewStructureInference(domain, err.Error(), nil)
	}

	log.Info().Str("product_container", set.ProductContainer).Msg("Structure inferred")
	return set, nil
}

func buildStructurePrompt(doc *goquery.Document, pageURL string) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())

	return fmt.Sprintf(`Analyze this e-commerce page markup and identify the CSS selectors for product listings.
Page URL: %s
Page title: %s

Return only a JSON object with these keys:
{
  "product_container": "selector matching each product card",
  "title": "selector for the product title, relative to the container",
  "current_price": "selector for the sale price, relative to the container",
  "original_price": "selector for the original or list price, relative to the container",
  "product_link": "selector for the anchor linking to the product, relative to the container",
  "description": "selector for a short description, relative to the container",
  "image": "selector for the product image, relative to the container"
}

Markup:
%s`, pageURL, title, bodyFeatures(doc))
}

// bodyFeatures returns the page body without scripts, styles or comments, whitespace
// collapsed and truncated
func bodyFeatures(doc *goquery.Document) string {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		body = doc.Selection
	}
	clone := body.Clone()
	clone.Find("script, style, noscript, svg, iframe, link, meta").Remove()

	markup, err := goquery.OuterHtml(clone)
	if err != nil {
		return ""
	}
	markup = htmlComment.ReplaceAllString(markup, "")
	markup = whitespaceRun.ReplaceAllString(markup, " ")
	if len(markup) > maxBodyFeatures {
		markup = strings.ToValidUTF8(markup[:maxBodyFeatures], "")
	}
	return strings.TrimSpace(markup)
}

// parseSelectorSet extracts the JSON object from a response that may wrap it in a
// code fence or surrounding prose
func parseSelectorSet(response string) (models.SelectorSet, error) {
	text := strings.TrimSpace(response)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return models.SelectorSet{}, fmt.Errorf("no JSON object in response")
	}

	var set models.SelectorSet
	if err := json.Unmarshal([]byte(text[start:end+1]), &set); err != nil {
		return models.SelectorSet{}, fmt.Errorf("decode selector set: %w", err)
	}

	set.ProductContainer = strings.TrimSpace(set.ProductContainer)
	set.Title = strings.TrimSpace(set.Title)
	set.CurrentPrice = strings.TrimSpace(set.CurrentPrice)
	set.OriginalPrice = strings.TrimSpace(set.OriginalPrice)
	set.ProductLink = strings.TrimSpace(set.ProductLink)
	set.Description = strings.TrimSpace(set.Description)
	set.Image = strings.TrimSpace(set.Image)
	return set, nil
}

// validateSelectorSet checks that required selectors are present, every selector compiles
// and the container matches something in doc
func validateSelectorSet(doc *goquery.Document, set models.SelectorSet) error {
	for _, field := range []string{"product_container", "title", "current_price", "product_link"} {
		if set.Required()[field] == "" {
			return fmt.Errorf("missing required selector %q", field)
		}
	}

	for field, sel := range map[string]string{
		"product_container": set.ProductContainer,
		"title":             set.Title,
		"current_price":     set.CurrentPrice,
		"original_price":    set.OriginalPrice,
		"product_link":      set.ProductLink,
		"description":       set.Description,
		"image":             set.Image,
	} {
		if sel == "" {
			continue
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("invalid %s selector %q: %v", field, sel, err)
		}
	}

	if doc.Find(set.ProductContainer).Length() == 0 {
		return fmt.Errorf("product_container %q matches nothing", set.ProductContainer)
	}
	return nil
}
