package models

// Category is one taxonomy entry: a name and the keyword stems that indicate it
type Category struct {
	Name     string   `toml:"name" json:"name"`
	Keywords []string `toml:"keywords" json:"keywords"`
}

// Categorization is the result of mapping text onto a taxonomy
type Categorization struct {
	Primary    string
	Confidence map[string]float64
	Tags       []string
}

// DefaultTaxonomy returns the built-in category table in declaration order
func DefaultTaxonomy() []Category {
	return []Category{
		{Name: "electronics", Keywords: []string{"laptop", "phone", "tv", "camera", "headphone", "tablet", "console"}},
		{Name: "fashion", Keywords: []string{"clothing", "shoes", "accessories", "watch", "jewelry", "handbag"}},
		{Name: "home", Keywords: []string{"furniture", "appliance", "kitchen", "bedding", "decor"}},
		{Name: "beauty", Keywords: []string{"makeup", "skincare", "fragrance", "haircare"}},
		{Name: "sports", Keywords: []string{"fitness", "outdoor", "exercise", "sports"}},
		{Name: "toys", Keywords: []string{"games", "toys", "kids"}},
		{Name: "books", Keywords: []string{"book", "ebook", "audiobook"}},
		{Name: "auto", Keywords: []string{"automotive", "car", "motorcycle"}},
		{Name: "grocery", Keywords: []string{"food", "beverage", "grocery"}},
		{Name: "pet", Keywords: []string{"pet", "dog", "cat"}},
	}
}
