package price

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		text     string
		expected float64
	}{
		{text: "$19.99", expected: 19.99},
		{text: "  $1,299.00 ", expected: 1299},
		{text: "USD 2,499", expected: 2499},
		{text: "€1.299,95", expected: 1299.95},
		{text: "12,50 €", expected: 12.5},
		{text: "£ 1 049.00", expected: 1049},
		{text: "Now $89.99 Was $129.99", expected: 89.99},
		{text: "₩1.234.000", expected: 1234000},
		{text: "CHF 1'250.50", expected: 1250.5},
		{text: "10.", expected: 10},
		{text: "19.99 29.99", expected: 19.99},
		{text: "49.99\n79.99", expected: 49.99},
		{text: "1.299 1.499", expected: 1.299},
		{text: "149 199", expected: 149},
		{text: "1\u00a0049,00 €", expected: 1049},
		{text: "2\u202f500 kr", expected: 2500},
		{text: "12,5 €", expected: 12.5},
		{text: "$10 - $20", expected: 10},
	}

	for _, tc := range testCases {
		value, ok := Parse(tc.text)
		assert.True(t, ok, tc.text)
		assert.InDelta(t, tc.expected, value, 1e-9, tc.text)
	}
}

func TestParseFailure(t *testing.T) {
	for _, text := range []string{
		"", "Free", "Sold out", "$0.00", "--",
		// inconsistent grouping
		"1.234.56",
		"1,23,456",
		"12345,678",
		"1.234,567.89",
		"1,2345",
	} {
		value, ok := Parse(text)
		assert.False(t, ok, text)
		assert.Zero(t, value, text)
	}
}
