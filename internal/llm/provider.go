//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package llm provides interfaces and implementations for LLM providers.
package llm

import (
	"context"
	"errors"
)

// CompletionProvider generates text completions using an LLM.
type CompletionProvider interface {
	// Complete generates a completion for the given prompt.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// ModelName returns the name of the model being used.
	ModelName() string
}

// CompletionRequest represents a request to an LLM for completion.
type CompletionRequest struct {
	// SystemPrompt is the system-level instruction for the model.
	SystemPrompt string

	// Messages is the conversation history.
	Messages []Message

	// MaxTokens is the maximum number of tokens to generate.
	// If 0, uses the provider's default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0+ = creative).
	// If negative, uses the provider's default.
	Temperature float64

	// JSON asks the provider to constrain the reply to a single JSON
	// object. Providers without such a mode ignore it.
	JSON bool
}

// Message represents a message in the conversation.
type Message struct {
	Role    string // "user", "assistant", or "system"
	Content string
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// UserMessage returns a message with the user role.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content      string
	FinishReason string
	Usage        TokenUsage
}

// TokenUsage represents token consumption for a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Error types for LLM operations.
type Error struct {
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Err        error // Underlying transport error, if any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimit    = "rate_limit"
	ErrCodeInvalidKey   = "invalid_api_key"
	ErrCodeQuotaExceed  = "quota_exceeded"
	ErrCodeModelError   = "model_error"
	ErrCodeTimeout      = "timeout"
	ErrCodeNetworkError = "network_error"
	ErrCodeEmpty        = "empty_response"
)

// IsRetryable returns true if the error can be retried.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// NewAPIError builds an Error from a provider's HTTP status and message,
// classifying the status into one of the common error codes.
func NewAPIError(status int, message string) *Error {
	e := &Error{
		Code:       ErrCodeModelError,
		Message:    message,
		StatusCode: status,
	}

	switch {
	case status == 401 || status == 403:
		e.Code = ErrCodeInvalidKey
	case status == 402:
		e.Code = ErrCodeQuotaExceed
	case status == 408 || status == 504:
		e.Code = ErrCodeTimeout
		e.Retryable = true
	case status == 429:
		e.Code = ErrCodeRateLimit
		e.Retryable = true
	case status >= 500:
		e.Retryable = true
	}

	return e
}
