package crawler

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"sjsage522/dealfinder/internal/models"
	dealerrors "sjsage522/dealfinder/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listingSelectors = models.SelectorSet{
	ProductContainer: "li.product",
	Title:            "a.name",
	CurrentPrice:     ".now",
	OriginalPrice:    ".was",
	ProductLink:      "a.name",
	Description:      ".blurb",
	Image:            "img.photo",
}

func newTestExtractor() *ProductExtractor {
	e := NewProductExtractor(NewCategorizer(models.DefaultTaxonomy()), NewImageResolver())
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e
}

func TestProductExtractor_Extract(t *testing.T) {
	result := newTestExtractor().Extract(mustDocument(t, productListingPage), listingSelectors, "Shop", "https://shop.example/deals/")

	require.Len(t, result.Deals, 3)
	assert.Equal(t, 6, result.Products)
	assert.Equal(t, 5, result.Candidates())

	first := result.Deals[0]
	assert.Equal(t, "Wireless Headphones", first.Title)
	assert.Equal(t, "Noise cancelling", first.Description)
	assert.Equal(t, 59.99, first.Price)
	assert.Equal(t, 99.99, first.OriginalPrice)
	assert.Equal(t, 40.0, first.DiscountPercentage)
	assert.Equal(t, "https://shop.example/p/1", first.URL)
	require.NotNil(t, first.ImageURL)
	assert.Equal(t, "https://shop.example/img/1.jpg", *first.ImageURL)
	assert.Equal(t, "electronics", first.Category)
	assert.Equal(t, "Shop", first.Retailer)
	assert.True(t, first.Valid)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), first.Timestamp)

	second := result.Deals[1]
	assert.Equal(t, "Running Shoes", second.Title)
	require.NotNil(t, second.ImageURL)
	assert.Equal(t, "https://shop.example/img/2-large.jpg", *second.ImageURL)
	assert.Equal(t, "fashion", second.Category)

	third := result.Deals[2]
	assert.Equal(t, "Face Serum", third.Title)
	assert.Equal(t, 12.5, third.Price)
	assert.Equal(t, 25.0, third.OriginalPrice)
	assert.Equal(t, 50.0, third.DiscountPercentage)
	assert.Equal(t, "https://cdn.shop.example/p/5", third.URL)
	assert.Nil(t, third.ImageURL)

	require.Len(t, result.Failures, 3)
	assert.Equal(t, 2, result.Failures[0].Index)
	assert.Equal(t, dealerrors.ErrorTypePriceParse, dealerrors.TypeOf(result.Failures[0].Err))
	assert.Equal(t, 3, result.Failures[1].Index)
	assert.Equal(t, dealerrors.ErrorTypeFieldExtraction, dealerrors.TypeOf(result.Failures[1].Err))
	assert.Equal(t, 5, result.Failures[2].Index)
	assert.Equal(t, dealerrors.ErrorTypeValidation, dealerrors.TypeOf(result.Failures[2].Err))
}

func TestProductExtractor_OneBadProductKeepsOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	for i := 1; i <= 5; i++ {
		if i == 3 {
			b.WriteString(`<div class="card"><a class="t" href="/p/3">Broken</a></div>`)
			continue
		}
		fmt.Fprintf(&b, `<div class="card"><a class="t" href="/p/%d">Item %d</a><b class="p">$%d.00</b><s class="o">$100.00</s></div>`, i, i, i*10)
	}
	b.WriteString(`</body></html>`)

	selectors := models.SelectorSet{ProductContainer: "div.card", Title: "a.t", CurrentPrice: "b.p", OriginalPrice: "s.o", ProductLink: "a.t"}
	result := newTestExtractor().Extract(mustDocument(t, b.String()), selectors, "Cards", "https://cards.example/")

	require.Len(t, result.Deals, 4)
	for i, want := range []string{"Item 1", "Item 2", "Item 4", "Item 5"} {
		assert.Equal(t, want, result.Deals[i].Title)
	}
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 2, result.Failures[0].Index)
}

func TestProductExtractor_DiscountInvariant(t *testing.T) {
	result := newTestExtractor().Extract(mustDocument(t, productListingPage), listingSelectors, "Shop", "https://shop.example/")

	for _, deal := range result.Deals {
		assert.Less(t, deal.Price, deal.OriginalPrice)
		assert.Equal(t, models.DiscountPercentage(deal.Price, deal.OriginalPrice), deal.DiscountPercentage)
	}
}

func TestProductExtractor_RecoversFromPanics(t *testing.T) {
	e := newTestExtractor()
	e.images = nil

	var result PageResult
	assert.NotPanics(t, func() {
		result = e.Extract(mustDocument(t, productListingPage), listingSelectors, "Shop", "https://shop.example/")
	})
	assert.Empty(t, result.Deals)
	assert.Len(t, result.Failures, 6)
}

func TestProductExtractor_NoContainers(t *testing.T) {
	result := newTestExtractor().Extract(mustDocument(t, `<html><body><p>closed</p></body></html>`), listingSelectors, "Shop", "https://shop.example/")

	assert.Equal(t, 0, result.Products)
	assert.Equal(t, 0, result.Candidates())
	assert.Empty(t, result.Deals)
}

func TestProductExtractor_NestedOriginalPrice(t *testing.T) {
	page := `<html><body><ul>
<li class="card"><a class="name" href="/p/kettle">Electric Kettle</a><span class="price">49.99 <s>79.99</s></span></li>
<li class="card"><a class="name" href="/p/toaster">Toaster</a><span class="price">149 <s>199</s></span></li>
</ul></body></html>`
	selectors := models.SelectorSet{
		ProductContainer: "li.card",
		Title:            "a.name",
		CurrentPrice:     ".price",
		OriginalPrice:    ".price s",
		ProductLink:      "a.name",
	}

	result := newTestExtractor().Extract(mustDocument(t, page), selectors, "Shop", "https://shop.example/")

	require.Empty(t, result.Failures)
	require.Len(t, result.Deals, 2)
	assert.Equal(t, 49.99, result.Deals[0].Price)
	assert.Equal(t, 79.99, result.Deals[0].OriginalPrice)
	assert.Equal(t, 37.5, result.Deals[0].DiscountPercentage)
	assert.Equal(t, 149.0, result.Deals[1].Price)
	assert.Equal(t, 199.0, result.Deals[1].OriginalPrice)
}
