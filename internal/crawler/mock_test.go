package crawler

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, &mockError{message: "cache miss"}
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

type mockError struct {
	message string
}

func (e *mockError) Error() string {
	return e.message
}

// mockReasoning answers every prompt with a fixed response and counts calls
type mockReasoning struct {
	response string
	err      error
	delay    time.Duration
	calls    int32
}

func (m *mockReasoning) Complete(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.response, m.err
}

func (m *mockReasoning) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

func mustDocument(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

const productListingPage = `<html><head><title>Weekly Deals</title>
<script>var tracking = true;</script></head><body>
<ul class="grid">
  <li class="product">
    <a class="name" href="/p/1">Wireless Headphones</a>
    <span class="now">$59.99</span><span class="was">$99.99</span>
    <p class="blurb">Noise cancelling</p>
    <img class="photo" src="/img/1.jpg">
  </li>
  <li class="product">
    <a class="name" href="/p/2">Running Shoes</a>
    <span class="now">$45.00</span><span class="was">$90.00</span>
    <img class="photo" srcset="/img/2-small.jpg 300w, /img/2-large.jpg 800w">
  </li>
  <li class="product">
    <a class="name" href="/p/3">Mystery Box</a>
    <span class="now">Free</span><span class="was">$10.00</span>
  </li>
  <li class="product">
    <span class="now">$5.00</span><span class="was">$8.00</span>
  </li>
  <li class="product">
    <a class="name" href="https://cdn.shop.example/p/5">Face Serum</a>
    <span class="now">€12,50</span><span class="was">€25,00</span>
  </li>
  <li class="product">
    <a class="name" href="/p/6">Board Game</a>
    <span class="now">$30.00</span>
  </li>
</ul>
</body></html>`

const listingSelectorsJSON = `{
  "product_container": "li.product",
  "title": "a.name",
  "current_price": ".now",
  "original_price": ".was",
  "product_link": "a.name",
  "description": ".blurb",
  "image": "img.photo"
}`
