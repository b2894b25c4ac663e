package crawler

import (
	"encoding/json"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	imageExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".webp": true,
		".gif":  true,
	}

	zoomAttributes = []string{"data-zoom", "data-zoom-image", "data-large", "data-full"}

	// commonImageSelectors are tried after the site's own image selector
	commonImageSelectors = []string{
		".product-image img",
		".main-image img",
		".product-img-primary",
		`img[itemprop="image"]`,
		".gallery-image",
		".product-hero-image img",
		"img",
	}
)

// ImageCandidates holds every image source found for one product, by kind
type ImageCandidates struct {
	SrcSet   string
	Zoom     string
	Standard string
	Others   []string
}

// ImageResolver picks the best product image among candidate sources
type ImageResolver struct {
	selectors []string
}

// NewImageResolver creates an image resolver using the common product image selectors
func NewImageResolver() *ImageResolver {
	return &ImageResolver{selectors: commonImageSelectors}
}

// Resolve collects candidates under product and returns the best valid URL, or nil
func (r *ImageResolver) Resolve(product *goquery.Selection, imageSelector, pageURL string) *string {
	return r.Choose(r.Collect(product, imageSelector), pageURL)
}

// Collect gathers image candidates from a product node
func (r *ImageResolver) Collect(product *goquery.Selection, imageSelector string) ImageCandidates {
	var candidates ImageCandidates
	if product == nil || product.Length() == 0 {
		return candidates
	}

	for _, attr := range product.Get(0).Attr {
		name := strings.ToLower(attr.Key)
		if strings.HasPrefix(name, "data-") && (strings.Contains(name, "image") || strings.Contains(name, "img")) &&
			strings.Contains(attr.Val, "http") {
			candidates.Others = append(candidates.Others, strings.TrimSpace(attr.Val))
		}
	}

	product.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		candidates.Others = append(candidates.Others, jsonLDImages(s.Text())...)
	})

	selectors := r.selectors
	if imageSelector != "" {
		selectors = append([]string{imageSelector}, r.selectors...)
	}

	for _, selector := range selectors {
		img := product.Find(selector).First()
		if img.Length() == 0 {
			continue
		}

		if candidates.SrcSet == "" {
			candidates.SrcSet = strings.TrimSpace(img.AttrOr("srcset", ""))
		}
		if candidates.Zoom == "" {
			for _, attr := range zoomAttributes {
				if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
					candidates.Zoom = v
					break
				}
			}
		}
		if candidates.Standard == "" {
			candidates.Standard = strings.TrimSpace(img.AttrOr("src", ""))
			if candidates.Standard == "" {
				candidates.Standard = strings.TrimSpace(img.AttrOr("data-src", ""))
			}
		}
	}

	return candidates
}

// Choose applies the priority order: widest srcset entry, zoom, standard src, anything else
func (r *ImageResolver) Choose(candidates ImageCandidates, pageURL string) *string {
	base, _ := url.Parse(pageURL)

	for _, entry := range srcSetByWidth(candidates.SrcSet) {
		if u, ok := validImageURL(entry, base); ok {
			return &u
		}
	}

	ordered := append([]string{candidates.Zoom, candidates.Standard}, candidates.Others...)
	for _, raw := range ordered {
		if u, ok := validImageURL(raw, base); ok {
			return &u
		}
	}

	return nil
}

// srcSetByWidth returns srcset URLs ordered from the widest "w" descriptor down
func srcSetByWidth(srcset string) []string {
	type entry struct {
		url   string
		width int
	}

	var entries []entry
	for _, item := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(item))
		if len(fields) != 2 || !strings.HasSuffix(fields[1], "w") {
			continue
		}
		width, err := strconv.Atoi(strings.TrimSuffix(fields[1], "w"))
		if err != nil {
			continue
		}
		entries = append(entries, entry{url: fields[0], width: width})
	}

	// insertion sort keeps equal widths in source order
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].width > entries[j-1].width; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	urls := make([]string, len(entries))
	for i, e := range entries {
		urls[i] = e.url
	}
	return urls
}

// validImageURL resolves raw against base and accepts absolute http(s) URLs whose
// path ends in an image extension. The query string and fragment are dropped.
func validImageURL(raw string, base *url.URL) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if base != nil && !u.IsAbs() {
		u = base.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}

	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	if !imageExtensions[strings.ToLower(path.Ext(u.Path))] {
		return "", false
	}
	return u.String(), true
}

// jsonLDImages extracts image URLs from a JSON-LD block. The image field may be a
// string, a list, or an ImageObject with a url.
func jsonLDImages(raw string) []string {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}
	return imageValues(data["image"])
}

func imageValues(v interface{}) []string {
	switch value := v.(type) {
	case string:
		return []string{value}
	case []interface{}:
		var out []string
		for _, item := range value {
			out = append(out, imageValues(item)...)
		}
		return out
	case map[string]interface{}:
		if u, ok := value["url"].(string); ok {
			return []string{u}
		}
	}
	return nil
}
