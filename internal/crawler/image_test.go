package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productNode(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Find(".product").First()
}

func TestImageResolver_ZoomBeatsStandard(t *testing.T) {
	resolver := NewImageResolver()

	got := resolver.Choose(ImageCandidates{
		Standard: "https://x/a.jpg",
		Zoom:     "https://x/b.jpg",
	}, "https://x/")

	require.NotNil(t, got)
	assert.Equal(t, "https://x/b.jpg", *got)
}

func TestImageResolver_WidestSrcSet(t *testing.T) {
	resolver := NewImageResolver()

	got := resolver.Choose(ImageCandidates{
		SrcSet:   "https://x/small.jpg 300w, https://x/large.jpg 800w",
		Zoom:     "https://x/zoom.jpg",
		Standard: "https://x/a.jpg",
	}, "https://x/")

	require.NotNil(t, got)
	assert.Equal(t, "https://x/large.jpg", *got)
}

func TestImageResolver_RejectsInvalidCandidates(t *testing.T) {
	resolver := NewImageResolver()

	got := resolver.Choose(ImageCandidates{
		SrcSet:   "https://x/large.svg 800w",
		Zoom:     "ftp://x/zoom.jpg",
		Standard: "https://x/a.jpg?w=200&q=80",
	}, "https://x/")

	require.NotNil(t, got)
	assert.Equal(t, "https://x/a.jpg", *got)

	assert.Nil(t, resolver.Choose(ImageCandidates{Standard: "data:image/png;base64,AAAA"}, "https://x/"))
	assert.Nil(t, resolver.Choose(ImageCandidates{}, "https://x/"))
}

func TestImageResolver_ResolvesRelativeURLs(t *testing.T) {
	resolver := NewImageResolver()

	got := resolver.Choose(ImageCandidates{Standard: "/media/p1.PNG"}, "https://shop.example/deals")

	require.NotNil(t, got)
	assert.Equal(t, "https://shop.example/media/p1.PNG", *got)
}

func TestImageResolver_CollectFromMarkup(t *testing.T) {
	resolver := NewImageResolver()
	product := productNode(t, `
		<div class="product" data-image-large="https://cdn.example/structured-attr.jpg">
			<img class="hero" src="/img/p1-400.jpg" data-zoom-image="/img/p1-zoom.jpg"
				srcset="/img/p1-200.jpg 200w, /img/p1-1200.jpg 1200w, /img/p1-600.jpg 600w">
			<script type="application/ld+json">{"@type":"Product","image":["https://cdn.example/ld.webp"]}</script>
		</div>`)

	candidates := resolver.Collect(product, "img.hero")

	assert.Equal(t, "/img/p1-zoom.jpg", candidates.Zoom)
	assert.Equal(t, "/img/p1-400.jpg", candidates.Standard)
	assert.Equal(t, []string{"https://cdn.example/structured-attr.jpg", "https://cdn.example/ld.webp"}, candidates.Others)

	got := resolver.Resolve(product, "img.hero", "https://shop.example/sale")
	require.NotNil(t, got)
	assert.Equal(t, "https://shop.example/img/p1-1200.jpg", *got)
}

func TestImageResolver_FallsBackToOtherCandidates(t *testing.T) {
	resolver := NewImageResolver()
	product := productNode(t, `
		<div class="product">
			<script type="application/ld+json">{"image":{"@type":"ImageObject","url":"https://cdn.example/only.gif"}}</script>
			<span>No image tag</span>
		</div>`)

	got := resolver.Resolve(product, ".missing img", "https://shop.example/")

	require.NotNil(t, got)
	assert.Equal(t, "https://cdn.example/only.gif", *got)
}

func TestImageResolver_NoImage(t *testing.T) {
	resolver := NewImageResolver()
	product := productNode(t, `<div class="product"><h3>Plain</h3></div>`)

	assert.Nil(t, resolver.Resolve(product, "img", "https://shop.example/"))
}
