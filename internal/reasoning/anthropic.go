package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

// DefaultModel is used when no model is configured
const DefaultModel = "claude-3-opus-20240229"

// ErrEmptyResponse is returned when the service answers without any text block
var ErrEmptyResponse = errors.New("reasoning: empty response")

// Config configures the Anthropic-backed service
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	// Timeout bounds every Complete call
	Timeout time.Duration
	// MaxRetries is passed to the SDK. Zero disables its built-in retries.
	MaxRetries int
	// RequestsPerSecond paces calls across all goroutines. Zero means unlimited.
	RequestsPerSecond float64
	// BaseURL overrides the API endpoint
	BaseURL string
}

// AnthropicService implements Service with the Anthropic Messages API
type AnthropicService struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	limiter   *rate.Limiter
}

// NewAnthropicService creates a service from cfg
func NewAnthropicService(cfg Config) *AnthropicService {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &AnthropicService{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		limiter:   limiter,
	}
}

// Complete sends prompt as a single user message at temperature 0 and joins the text blocks
func (s *AnthropicService) Complete(ctx context.Context, prompt string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("reasoning: rate limit wait: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(s.model),
		MaxTokens:   s.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("reasoning: messages.new: %w", err)
	}

	var parts []string
	for _, block := range message.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.Join(parts, "\n"), nil
}

var _ Service = (*AnthropicService)(nil)
