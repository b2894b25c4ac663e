package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscountPercentage(t *testing.T) {
	testCases := []struct {
		price    float64
		original float64
		expected float64
	}{
		{price: 75, original: 100, expected: 25},
		{price: 19.99, original: 29.99, expected: 33.34},
		{price: 1, original: 3, expected: 66.67},
		{price: 10, original: 0, expected: 0},
	}

	for _, tc := range testCases {
		assert.InDelta(t, tc.expected, DiscountPercentage(tc.price, tc.original), 1e-9)
	}
}

func TestRound2HalfEven(t *testing.T) {
	assert.Equal(t, 0.12, round2(0.125))
	assert.Equal(t, 0.38, round2(0.375))
	assert.Equal(t, 12.5, round2(12.5))
	assert.Equal(t, 37.5, DiscountPercentage(5, 8))
}

func TestUserPreferencesPriceLimit(t *testing.T) {
	assert.False(t, DefaultPreferences().HasPriceLimit())
	assert.False(t, UserPreferences{MaxPrice: 0}.HasPriceLimit())
	assert.False(t, UserPreferences{MaxPrice: math.NaN()}.HasPriceLimit())
	assert.True(t, UserPreferences{MaxPrice: 250}.HasPriceLimit())
}

func TestClampedMinDiscount(t *testing.T) {
	assert.Equal(t, 0.0, UserPreferences{MinDiscount: -5}.ClampedMinDiscount())
	assert.Equal(t, 100.0, UserPreferences{MinDiscount: 150}.ClampedMinDiscount())
	assert.Equal(t, 30.0, UserPreferences{MinDiscount: 30}.ClampedMinDiscount())
}
