package models

// SelectorSet describes where each deal field lives in one domain's markup.
// Every field is a CSS selector evaluated relative to a product container.
type SelectorSet struct {
	ProductContainer string `toml:"product_container" json:"product_container"`
	Title            string `toml:"title" json:"title"`
	CurrentPrice     string `toml:"current_price" json:"current_price"`
	OriginalPrice    string `toml:"original_price" json:"original_price"`
	ProductLink      string `toml:"product_link" json:"product_link"`
	Description      string `toml:"description" json:"description"`
	Image            string `toml:"image" json:"image"`
}

// Required returns the selectors that must be present for the set to be usable
func (s SelectorSet) Required() map[string]string {
	return map[string]string{
		"product_container": s.ProductContainer,
		"title":             s.Title,
		"current_price":     s.CurrentPrice,
		"product_link":      s.ProductLink,
	}
}
