package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainOf(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
	}{
		{url: "https://www.Shop.example/deals?page=2", expected: "shop.example"},
		{url: "http://deals.shop.example:8080/x", expected: "deals.shop.example"},
		{url: "not a url", expected: ""},
		{url: "", expected: ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, DomainOf(tc.url), tc.url)
	}
}

func TestResolveURL(t *testing.T) {
	testCases := []struct {
		href     string
		expected string
	}{
		{href: "/deals/123", expected: "https://example.com/deals/123"},
		{href: "//example.com/deals/123", expected: "https://example.com/deals/123"},
		{href: "https://other.com/deals/123", expected: "https://other.com/deals/123"},
		{href: "item?id=7", expected: "https://example.com/sale/item?id=7"},
	}

	for _, tc := range testCases {
		got, err := ResolveURL("https://example.com/sale/", tc.href)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, got)
	}

	_, err := ResolveURL("https://example.com/", "  ")
	assert.Error(t, err)

	_, err = ResolveURL("/relative/page", "/deal")
	assert.Error(t, err)
}
