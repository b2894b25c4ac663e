package crawler

import (
	"strings"
	"unicode"

	"sjsage522/dealfinder/internal/models"
)

// Categorizer maps free text onto a fixed, ordered taxonomy
type Categorizer struct {
	taxonomy []models.Category
}

// NewCategorizer creates a categorizer over the given taxonomy.
// Keywords are lower-cased; declaration order decides ties.
func NewCategorizer(taxonomy []models.Category) *Categorizer {
	normalized := make([]models.Category, 0, len(taxonomy))
	for _, category := range taxonomy {
		keywords := make([]string, 0, len(category.Keywords))
		for _, keyword := range category.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword != "" {
				keywords = append(keywords, keyword)
			}
		}
		if category.Name == "" || len(keywords) == 0 {
			continue
		}
		normalized = append(normalized, models.Category{Name: category.Name, Keywords: keywords})
	}
	return &Categorizer{taxonomy: normalized}
}

// Taxonomy returns the categories the categorizer was built with
func (c *Categorizer) Taxonomy() []models.Category {
	return c.taxonomy
}

// Keywords returns the keywords of the named category, matched case-insensitively
func (c *Categorizer) Keywords(name string) []string {
	for _, category := range c.taxonomy {
		if strings.EqualFold(category.Name, name) {
			return category.Keywords
		}
	}
	return nil
}

// Categorize scores title and description against every category.
// Confidence is the fraction of a category's keywords present in the text.
func (c *Categorizer) Categorize(title, description string) models.Categorization {
	words := tokenize(title + " " + description)

	result := models.Categorization{
		Primary:    models.Uncategorized,
		Confidence: make(map[string]float64),
	}

	seenTags := make(map[string]bool)
	best := 0.0
	for _, category := range c.taxonomy {
		matched := 0
		for _, keyword := range category.Keywords {
			if !containsStem(words, keyword) {
				continue
			}
			matched++
			if !seenTags[keyword] {
				seenTags[keyword] = true
				result.Tags = append(result.Tags, keyword)
			}
		}
		if matched == 0 {
			continue
		}

		confidence := float64(matched) / float64(len(category.Keywords))
		result.Confidence[category.Name] = confidence
		if confidence > best {
			best = confidence
			result.Primary = category.Name
		}
	}

	return result
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsStem reports whether any word starts with stem
func containsStem(words []string, stem string) bool {
	for _, word := range words {
		if strings.HasPrefix(word, stem) {
			return true
		}
	}
	return false
}
