package crawler

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"sjsage522/dealfinder/helpers"
	"sjsage522/dealfinder/logger"
	dealerrors "sjsage522/dealfinder/pkg/errors"
	"sjsage522/dealfinder/services/cache"
)

// DefaultBlockTime is how long a domain is left alone after it rate limits us
const DefaultBlockTime = 500 * time.Second

// FetchFunc retrieves a page body as UTF-8
type FetchFunc func(ctx context.Context, url string) (io.Reader, error)

// Fetcher fetches pages with per-domain pacing and a shared rate-limit block window
type Fetcher struct {
	CacheSvc  cache.CacheService
	BlockTime time.Duration

	rps      float64
	fetch    FetchFunc
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a fetcher. rps <= 0 disables per-domain pacing.
func NewFetcher(cacheSvc cache.CacheService, blockTime time.Duration, rps float64) *Fetcher {
	if blockTime <= 0 {
		blockTime = DefaultBlockTime
	}
	return &Fetcher{
		CacheSvc:  cacheSvc,
		BlockTime: blockTime,
		rps:       rps,
		fetch:     helpers.FetchWithRandomHeaders,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Fetch downloads and parses pageURL. A domain that recently answered 429 is not contacted
// until its block window in the cache expires.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	domain := helpers.DomainOf(pageURL)
	cacheKey := rateLimitKey(domain)

	// Check if the domain is rate limited
	if f.CacheSvc != nil {
		if _, err := f.CacheSvc.Get(cacheKey); err == nil {
			return nil, dealerrors.NewRateLimit(domain, f.BlockTime)
		}
	}

	if limiter := f.limiter(domain); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, dealerrors.NewNetwork(domain, "pacing wait aborted", err)
		}
	}

	body, err := f.fetch(ctx, pageURL)
	if err != nil {
		if f.CacheSvc != nil && dealerrors.TypeOf(err) == dealerrors.ErrorTypeRateLimit {
			seconds := strconv.Itoa(int(f.BlockTime / time.Second))
			if setErr := f.CacheSvc.Set(cacheKey, []byte(seconds), f.BlockTime); setErr != nil {
				logger.ForCache().Warn().
					Str("domain", domain).
					Err(dealerrors.NewCache(domain, "failed to store rate limit block", setErr)).
					Msg("Rate limit block not stored")
			} else {
				logger.ForCrawler(domain).Warn().
					Dur("block", f.BlockTime).
					Msg("Domain rate limited us, blocking further requests")
			}
		}
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html from %s: %w", pageURL, err)
	}
	return doc, nil
}

func (f *Fetcher) limiter(domain string) *rate.Limiter {
	if f.rps <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[domain]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.rps), 1)
		f.limiters[domain] = l
	}
	return l
}

func rateLimitKey(domain string) string {
	return "dealfinder_rate_limited_" + domain
}

var _ PageFetcher = (*Fetcher)(nil)
