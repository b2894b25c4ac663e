// Package reasoning is the boundary to the external natural-language reasoning service.
package reasoning

import "context"

// Service completes a prompt and returns free-form text
type Service interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ServiceFunc adapts a function to the Service interface
type ServiceFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f(ctx, prompt)
func (f ServiceFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
