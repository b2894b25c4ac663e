package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeStructureInference means no usable selector set could be found for a page
	ErrorTypeStructureInference ErrorType = "structure_inference"
	// ErrorTypeFieldExtraction means a required field is missing on one product
	ErrorTypeFieldExtraction ErrorType = "field_extraction"
	// ErrorTypePriceParse means a price text could not be normalized
	ErrorTypePriceParse ErrorType = "price_parse"
	// ErrorTypeImageResolution means no valid image candidate was found
	ErrorTypeImageResolution ErrorType = "image_resolution"
	// ErrorTypeReasoningService means the reasoning service call itself failed
	ErrorTypeReasoningService ErrorType = "reasoning_service"
	// ErrorTypeScoreParse means the reasoning service answered without a usable score
	ErrorTypeScoreParse ErrorType = "score_parse"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

var (
	// ErrNoStructureFound is matched by every structure inference failure
	ErrNoStructureFound = stderrors.New("no structure found")
	// ErrAllPagesFailed is returned when every page of a run failed structure inference
	ErrAllPagesFailed = stderrors.New("every page failed structure inference")
)

// DealError represents a pipeline error scoped to a source (domain, retailer or deal)
type DealError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *DealError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *DealError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match structure inference failures against ErrNoStructureFound
func (e *DealError) Is(target error) bool {
	return target == ErrNoStructureFound && e.Type == ErrorTypeStructureInference
}

// IsRetryable returns true if the error is retryable
func (e *DealError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeReasoningService:
		return true
	default:
		return false
	}
}

// New creates a new DealError
func New(errType ErrorType, source, message string, err error) *DealError {
	return &DealError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// TypeOf returns the ErrorType of err, or "" when err is not a DealError
func TypeOf(err error) ErrorType {
	var de *DealError
	if stderrors.As(err, &de) {
		return de.Type
	}
	return ""
}

// NewStructureInference creates a new structure inference error
func NewStructureInference(domain, message string, err error) *DealError {
	return New(ErrorTypeStructureInference, domain, message, err)
}

// NewFieldExtraction creates a new field extraction error
func NewFieldExtraction(source, field string) *DealError {
	return New(ErrorTypeFieldExtraction, source, "missing required field "+field, nil)
}

// NewPriceParse creates a new price parse error
func NewPriceParse(source, text string) *DealError {
	return New(ErrorTypePriceParse, source, fmt.Sprintf("unparsable price %q", text), nil)
}

// NewImageResolution creates a new image resolution miss
func NewImageResolution(source string) *DealError {
	return New(ErrorTypeImageResolution, source, "no valid image candidate", nil)
}

// NewReasoningService creates a new reasoning service error
func NewReasoningService(source, message string, err error) *DealError {
	return New(ErrorTypeReasoningService, source, message, err)
}

// NewScoreParse creates a new score parse error
func NewScoreParse(source string) *DealError {
	return New(ErrorTypeScoreParse, source, "no parseable score in response", nil)
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *DealError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *DealError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *DealError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *DealError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *DealError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *DealError {
	return New(ErrorTypeConfiguration, "", message, err)
}
