package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"sjsage522/dealfinder/internal/models"
	dealerrors "sjsage522/dealfinder/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration. Empty uses an in-process cache.
	MemcacheAddr string

	// SQLite deal store. Empty disables the store.
	SQLitePath string

	// Crawler configuration
	CrawlInterval  time.Duration
	FetchWorkers   int
	FetchRPS       float64
	RateLimitBlock time.Duration
	ReinferAfter   int

	// Reasoning service
	AnthropicAPIKey     string
	ReasoningModel      string
	ReasoningTimeout    time.Duration
	ReasoningMaxRetries int
	ReasoningRPS        float64
	ScoreWorkers        int

	// Scoring thresholds
	IngestionFloor      int
	RecommendationFloor int
	FallbackScore       int

	// Metrics endpoint address, e.g. ":9090". Empty disables it.
	MetricsAddr string

	Targets     []models.Target
	Taxonomy    []models.Category
	Preferences models.UserPreferences

	// Environment
	Environment string
}

// fileConfig is the optional TOML overlay
type fileConfig struct {
	Targets     []models.Target        `toml:"targets"`
	Taxonomy    []models.Category      `toml:"taxonomy"`
	Preferences models.UserPreferences `toml:"preferences"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		RedisAddr:            "localhost:6379",
		RedisDB:              0,
		RedisStream:          "deals",
		RedisStreamCount:     1,
		RedisStreamMaxLength: 1000,
		MemcacheAddr:         "localhost:11211",
		SQLitePath:           "dealfinder.db",
		CrawlInterval:        300 * time.Second,
		FetchWorkers:         4,
		FetchRPS:             0.5,
		RateLimitBlock:       500 * time.Second,
		ReinferAfter:         3,
		ReasoningModel:       "claude-3-opus-20240229",
		ReasoningTimeout:     60 * time.Second,
		ReasoningMaxRetries:  0,
		ReasoningRPS:         1,
		ScoreWorkers:         4,
		IngestionFloor:       60,
		RecommendationFloor:  70,
		FallbackScore:        50,
		Taxonomy:             models.DefaultTaxonomy(),
		Preferences:          models.DefaultPreferences(),
		Environment:          "development",
	}
}

// LoadConfig builds the configuration from defaults, the TOML file named by
// DEALFINDER_CONFIG_FILE (if any) and environment variables, in that order
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("DEALFINDER_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file := fileConfig{Preferences: c.Preferences}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return dealerrors.NewConfiguration("failed to read "+path, err)
	}

	if len(file.Targets) > 0 {
		c.Targets = file.Targets
	}
	if len(file.Taxonomy) > 0 {
		c.Taxonomy = file.Taxonomy
	}
	c.Preferences = file.Preferences
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	setStr(&c.RedisAddr, "REDIS_ADDR")
	collect(setInt(&c.RedisDB, "REDIS_DB"))
	setStr(&c.RedisStream, "REDIS_STREAM")
	collect(setInt(&c.RedisStreamCount, "REDIS_STREAM_COUNT"))
	collect(setInt(&c.RedisStreamMaxLength, "REDIS_STREAM_MAX_LENGTH"))
	setStr(&c.MemcacheAddr, "MEMCACHE_ADDR")
	setStr(&c.SQLitePath, "SQLITE_PATH")

	collect(setSeconds(&c.CrawlInterval, "CRAWL_INTERVAL_SECONDS"))
	collect(setInt(&c.FetchWorkers, "FETCH_WORKERS"))
	collect(setFloat(&c.FetchRPS, "FETCH_RPS"))
	collect(setSeconds(&c.RateLimitBlock, "RATE_LIMIT_BLOCK_SECONDS"))
	collect(setInt(&c.ReinferAfter, "REINFER_AFTER_FAILURES"))

	setStr(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setStr(&c.ReasoningModel, "REASONING_MODEL")
	collect(setSeconds(&c.ReasoningTimeout, "REASONING_TIMEOUT_SECONDS"))
	collect(setInt(&c.ReasoningMaxRetries, "REASONING_MAX_RETRIES"))
	collect(setFloat(&c.ReasoningRPS, "REASONING_RPS"))
	collect(setInt(&c.ScoreWorkers, "SCORE_WORKERS"))

	collect(setInt(&c.IngestionFloor, "INGESTION_FLOOR"))
	collect(setInt(&c.RecommendationFloor, "RECOMMENDATION_FLOOR"))
	collect(setInt(&c.FallbackScore, "FALLBACK_SCORE"))

	setStr(&c.MetricsAddr, "METRICS_ADDR")
	setStr(&c.Environment, "DEALFINDER_ENVIRONMENT")

	if v := os.Getenv("DEALFINDER_TARGETS"); v != "" {
		c.Targets = ParseTargets(v)
	}

	collect(setFloat(&c.Preferences.MaxPrice, "MAX_PRICE"))
	collect(setFloat(&c.Preferences.MinDiscount, "MIN_DISCOUNT"))
	collect(setInt(&c.Preferences.QualityFloor, "QUALITY_FLOOR"))
	if v := os.Getenv("CATEGORIES"); v != "" {
		c.Preferences.Categories = splitList(v)
	}

	if len(errs) > 0 {
		return dealerrors.NewConfiguration("invalid environment", errors.Join(errs...))
	}
	return nil
}

// Validate checks values every mode depends on
func (c *Config) Validate() error {
	var errs []error
	if c.IngestionFloor < 0 || c.IngestionFloor > 100 {
		errs = append(errs, fmt.Errorf("INGESTION_FLOOR must be within 0-100, got %d", c.IngestionFloor))
	}
	if c.RecommendationFloor < c.IngestionFloor || c.RecommendationFloor > 100 {
		errs = append(errs, fmt.Errorf("RECOMMENDATION_FLOOR must be within %d-100, got %d", c.IngestionFloor, c.RecommendationFloor))
	}
	if c.FallbackScore < 0 || c.FallbackScore > 100 {
		errs = append(errs, fmt.Errorf("FALLBACK_SCORE must be within 0-100, got %d", c.FallbackScore))
	}
	if c.ReasoningMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("REASONING_MAX_RETRIES must not be negative"))
	}
	if c.RedisStreamCount < 1 {
		errs = append(errs, fmt.Errorf("REDIS_STREAM_COUNT must be at least 1"))
	}
	if len(c.Taxonomy) == 0 {
		errs = append(errs, fmt.Errorf("taxonomy must declare at least one category"))
	}

	if len(errs) > 0 {
		return dealerrors.NewConfiguration("invalid configuration", errors.Join(errs...))
	}
	return nil
}

// ValidateCrawl additionally checks what crawling needs: targets, a reasoning key and a schedule
func (c *Config) ValidateCrawl() error {
	if err := c.Validate(); err != nil {
		return err
	}

	var errs []error
	if c.AnthropicAPIKey == "" {
		errs = append(errs, fmt.Errorf("ANTHROPIC_API_KEY is required"))
	}
	if len(c.Targets) == 0 {
		errs = append(errs, fmt.Errorf("no targets configured (DEALFINDER_TARGETS or [[targets]])"))
	}
	for _, target := range c.Targets {
		u, err := url.Parse(target.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("target %q is not an absolute http(s) URL", target.URL))
		}
	}
	if c.CrawlInterval <= 0 {
		errs = append(errs, fmt.Errorf("CRAWL_INTERVAL_SECONDS must be positive"))
	}
	if c.FetchWorkers < 1 || c.ScoreWorkers < 1 {
		errs = append(errs, fmt.Errorf("FETCH_WORKERS and SCORE_WORKERS must be at least 1"))
	}

	if len(errs) > 0 {
		return dealerrors.NewConfiguration("invalid crawl configuration", errors.Join(errs...))
	}
	return nil
}

// ParseTargets reads a comma separated list of "Retailer|URL" or bare URL entries
func ParseTargets(value string) []models.Target {
	var targets []models.Target
	for _, entry := range splitList(value) {
		retailer, rawURL, found := strings.Cut(entry, "|")
		if !found {
			rawURL, retailer = retailer, ""
		}
		rawURL = strings.TrimSpace(rawURL)
		if rawURL == "" {
			continue
		}
		targets = append(targets, models.Target{URL: rawURL, Retailer: strings.TrimSpace(retailer)})
	}
	return targets
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func setStr(dst *string, key string) {
	*dst = getEnv(key, *dst)
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setSeconds(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = time.Duration(secs * float64(time.Second))
	return nil
}
