package crawler

import (
	"sjsage522/dealfinder/helpers"
	"sjsage522/dealfinder/internal/models"
	"sjsage522/dealfinder/logger"
)

// RetailerSeed is a known retailer layout that never needs inference
type RetailerSeed struct {
	Domain    string
	Retailer  string
	Selectors models.SelectorSet
}

// KnownRetailers returns the built-in selector seeds
func KnownRetailers() []RetailerSeed {
	return []RetailerSeed{
		{
			// Newegg search and deal listings
			Domain:   "newegg.com",
			Retailer: "Newegg",
			Selectors: models.SelectorSet{
				ProductContainer: "div.item-cell",
				Title:            "a.item-title",
				CurrentPrice:     "li.price-current",
				OriginalPrice:    "li.price-was span.price-was-data",
				ProductLink:      "a.item-title",
				Description:      "ul.item-features",
				Image:            "a.item-img img",
			},
		},
		{
			// Best Buy deal grid
			Domain:   "bestbuy.com",
			Retailer: "Best Buy",
			Selectors: models.SelectorSet{
				ProductContainer: "li.sku-item",
				Title:            "h4.sku-title a",
				CurrentPrice:     "div.priceView-customer-price span:first-child",
				OriginalPrice:    "div.pricing-price__regular-price",
				ProductLink:      "h4.sku-title a",
				Description:      "div.sku-model",
				Image:            "img.product-image",
			},
		},
		{
			// Woot daily offers
			Domain:   "woot.com",
			Retailer: "Woot",
			Selectors: models.SelectorSet{
				ProductContainer: "div.offer-item",
				Title:            "div.title",
				CurrentPrice:     "span.price",
				OriginalPrice:    "span.list-price",
				ProductLink:      "a.offer-link",
				Description:      "div.subtitle",
				Image:            "img.offer-image",
			},
		},
		{
			// Generic Shopify collection pages
			Domain:   "myshopify.com",
			Retailer: "Shopify",
			Selectors: models.SelectorSet{
				ProductContainer: "li.grid__item",
				Title:            "h3.card__heading a",
				CurrentPrice:     "span.price-item--sale",
				OriginalPrice:    "s.price-item--regular",
				ProductLink:      "h3.card__heading a",
				Image:            "div.card__media img",
			},
		},
	}
}

// SeedSelectors loads the built-in seeds and any selectors configured on targets.
// Target selectors override a built-in seed for the same domain.
func SeedSelectors(analyzer *StructureAnalyzer, targets []models.Target) int {
	seeded := 0
	for _, seed := range KnownRetailers() {
		analyzer.Seed(seed.Domain, seed.Selectors)
		seeded++
	}

	for _, target := range targets {
		if target.Selectors == nil {
			continue
		}
		domain := helpers.DomainOf(target.URL)
		if domain == "" {
			continue
		}
		analyzer.Seed(domain, *target.Selectors)
		seeded++
		logger.ForCrawler(domain).Debug().
			Str("retailer", target.Retailer).
			Msg("Seeded configured selectors")
	}

	logger.Info("Seeded %d selector sets", seeded)
	return seeded
}

// RetailerFor returns the label attached to a target's deals. Falls back to a known
// retailer's name, then to the domain.
func RetailerFor(target models.Target) string {
	if target.Retailer != "" {
		return target.Retailer
	}
	domain := helpers.DomainOf(target.URL)
	for _, seed := range KnownRetailers() {
		if seed.Domain == domain {
			return seed.Retailer
		}
	}
	return domain
}
