// Package genai talks to the answer-generation backend: the HTTP
// client, the bounded retry policy around it, and the closed prompt
// and data-source registries that route a query to the right
// generation setup.
package genai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a generation failure for retry and degraded
// response decisions.
type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
	KindServer      ErrorKind = "server_error"
	KindClient      ErrorKind = "client_error"
)

// APIError is a classified failure from the generation backend.
// RetryAfter carries the backend's wait hint when it sent one.
type APIError struct {
	Kind       ErrorKind
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("genai: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("genai: %s: %s", e.Kind, e.Message)
}

// Retryable reports whether another attempt could succeed.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindServer:
		return true
	default:
		return false
	}
}

// ErrorKindOf extracts the classification from err, falling back to
// KindServer for unclassified failures.
func ErrorKindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindServer
}

// GenerateRequest is one generation call.
type GenerateRequest struct {
	SystemPrompt string
	Query        string
	// ConversationContext is the trimmed prior-turn window, empty for
	// standalone queries.
	ConversationContext string
	DataSourceID        string
}

func (r *GenerateRequest) Validate() error {
	if r.SystemPrompt == "" {
		return errors.New("system prompt is required")
	}
	if r.Query == "" {
		return errors.New("query is required")
	}
	return nil
}

// Usage is the backend's token accounting for one response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResponse is one generated answer.
type GenerateResponse struct {
	Text    string    `json:"text"`
	Model   string    `json:"model,omitempty"`
	Created time.Time `json:"created,omitempty"`
	Usage   *Usage    `json:"usage,omitempty"`
}

// Generator produces answers for queries the cache could not serve.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}
