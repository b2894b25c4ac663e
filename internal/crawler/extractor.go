package crawler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"sjsage522/dealfinder/helpers"
	"sjsage522/dealfinder/internal/models"
	"sjsage522/dealfinder/internal/price"
	"sjsage522/dealfinder/logger"
	dealerrors "sjsage522/dealfinder/pkg/errors"
)

// ProductFailure records why the product at Index produced no deal
type ProductFailure struct {
	Index int
	Err   error
}

// PageResult is the outcome of extracting one page
type PageResult struct {
	// Products is the number of product containers found
	Products int
	// Deals holds the valid candidates in document order
	Deals    []models.Deal
	Failures []ProductFailure
}

// Candidates returns the number of products whose required fields were all present
func (r PageResult) Candidates() int {
	missing := 0
	for _, f := range r.Failures {
		if dealerrors.TypeOf(f.Err) == dealerrors.ErrorTypeFieldExtraction {
			missing++
		}
	}
	return r.Products - missing
}

// ProductExtractor turns product containers into candidate deals
type ProductExtractor struct {
	categorizer *Categorizer
	images      *ImageResolver
	now         func() time.Time
}

// NewProductExtractor creates an extractor. A nil image resolver uses NewImageResolver.
func NewProductExtractor(categorizer *Categorizer, images *ImageResolver) *ProductExtractor {
	if images == nil {
		images = NewImageResolver()
	}
	if categorizer == nil {
		categorizer = NewCategorizer(models.DefaultTaxonomy())
	}
	return &ProductExtractor{
		categorizer: categorizer,
		images:      images,
		now:         time.Now,
	}
}

// Extract applies selectors to doc. Products are processed concurrently; a failing
// product is logged and skipped without affecting the others.
func (e *ProductExtractor) Extract(doc *goquery.Document, selectors models.SelectorSet, retailer, pageURL string) PageResult {
	containers := doc.Find(selectors.ProductContainer)
	n := containers.Length()

	deals := make([]*models.Deal, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	containers.Each(func(i int, s *goquery.Selection) {
		wg.Add(1)
		go func(i int, s *goquery.Selection) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = dealerrors.New(dealerrors.ErrorTypeFieldExtraction, retailer,
						fmt.Sprintf("panic while extracting product: %v", r), nil)
				}
			}()
			deals[i], errs[i] = e.extractProduct(s, selectors, retailer, pageURL)
		}(i, s)
	})
	wg.Wait()

	result := PageResult{Products: n}
	log := logger.ForCrawler(helpers.DomainOf(pageURL))
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			result.Failures = append(result.Failures, ProductFailure{Index: i, Err: errs[i]})
			log.Debug().
				Str("retailer", retailer).
				Str("url", pageURL).
				Int("index", i).
				Str("error_type", string(dealerrors.TypeOf(errs[i]))).
				Err(errs[i]).
				Msg("Product skipped")
			continue
		}
		if deals[i] != nil {
			result.Deals = append(result.Deals, *deals[i])
		}
	}
	return result
}

func (e *ProductExtractor) extractProduct(s *goquery.Selection, selectors models.SelectorSet, retailer, pageURL string) (*models.Deal, error) {
	title := selectionText(s, selectors.Title, "title")
	if title == "" {
		return nil, dealerrors.NewFieldExtraction(retailer, "title")
	}

	priceText := selectionText(s, selectors.CurrentPrice, "content")
	if priceText == "" {
		return nil, dealerrors.NewFieldExtraction(retailer, "current_price")
	}

	href := linkHref(s, selectors.ProductLink)
	if href == "" {
		return nil, dealerrors.NewFieldExtraction(retailer, "product_link")
	}
	link, err := helpers.ResolveURL(pageURL, href)
	if err != nil {
		return nil, dealerrors.New(dealerrors.ErrorTypeFieldExtraction, retailer, "unresolvable product link", err)
	}

	current, ok := price.Parse(priceText)
	if !ok {
		return nil, dealerrors.NewPriceParse(retailer, priceText)
	}

	original := current
	if originalText := selectionText(s, selectors.OriginalPrice, "content"); originalText != "" {
		if original, ok = price.Parse(originalText); !ok {
			return nil, dealerrors.NewPriceParse(retailer, originalText)
		}
	}
	if current >= original {
		return nil, dealerrors.NewValidation(retailer, fmt.Sprintf("price %.2f is not below original %.2f", current, original))
	}

	description := selectionText(s, selectors.Description, "")
	categorization := e.categorizer.Categorize(title, description)

	return &models.Deal{
		ID:                 uuid.NewString(),
		Title:              title,
		Description:        description,
		Price:              current,
		OriginalPrice:      original,
		DiscountPercentage: models.DiscountPercentage(current, original),
		Retailer:           retailer,
		URL:                link,
		ImageURL:           e.images.Resolve(s, selectors.Image, pageURL),
		Category:           categorization.Primary,
		CategoryConfidence: categorization.Confidence,
		Tags:               categorization.Tags,
		Valid:              true,
		Timestamp:          e.now().UTC(),
	}, nil
}

// selectionText returns the trimmed text of the first match, falling back to attr
func selectionText(s *goquery.Selection, selector, attr string) string {
	if selector == "" {
		return ""
	}
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	text := strings.Join(strings.Fields(sel.Text()), " ")
	if text == "" && attr != "" {
		text = strings.TrimSpace(sel.AttrOr(attr, ""))
	}
	return text
}

// linkHref finds the product link, accepting the container itself when it is an anchor
func linkHref(s *goquery.Selection, selector string) string {
	if selector != "" {
		if href, ok := s.Find(selector).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			return strings.TrimSpace(href)
		}
	}
	if s.Is("a") {
		return strings.TrimSpace(s.AttrOr("href", ""))
	}
	return ""
}
