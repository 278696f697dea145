// Package agentic drives multi-turn model conversations that can invoke
// registered tools under turn, cost, and wall-clock budgets.
// This file contains the error taxonomy and retry classification.

package agentic

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConfigError reports an invalid run configuration. It is returned before
// any run state exists; a caller never receives a half-started run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// ToolError is a tool execution failure. Non-fatal errors become transcript
// entries the model can react to; a fatal error aborts the entire run.
type ToolError struct {
	ToolName string
	Err      error
	Fatal    bool
}

func (e *ToolError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("tool %s failed (fatal): %v", e.ToolName, e.Err)
	}
	return fmt.Sprintf("tool %s failed: %v", e.ToolName, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Fatalf builds a fatal ToolError. Tools use this to signal failures that
// must abort the run rather than being surfaced back to the model.
func Fatalf(toolName, format string, args ...any) error {
	return &ToolError{ToolName: toolName, Err: fmt.Errorf(format, args...), Fatal: true}
}

// IsFatalToolError reports whether err carries a fatal ToolError.
func IsFatalToolError(err error) bool {
	var te *ToolError
	return errors.As(err, &te) && te.Fatal
}

// ToolValidationError indicates that tool arguments failed JSON schema
// validation. Always non-fatal: the error text is surfaced to the model so
// it can retry with corrected arguments.
type ToolValidationError struct {
	ToolName string
	Errors   []string
}

func (e *ToolValidationError) Error() string {
	return fmt.Sprintf("tool %s validation failed: %s", e.ToolName, strings.Join(e.Errors, "; "))
}

// ModelClientError wraps a model provider failure with transport metadata
// used by retry classification.
type ModelClientError struct {
	Err        error
	HTTPStatus int
	RetryAfter string // Retry-After header value if present
}

func (e *ModelClientError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("model client error (status %d): %v", e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("model client error: %v", e.Err)
}

func (e *ModelClientError) Unwrap() error { return e.Err }

// RetryClass indicates whether an error should be retried.
type RetryClass string

const (
	RetryClassRetryable    RetryClass = "retryable"
	RetryClassMaybe        RetryClass = "maybe" // retry with limited attempts
	RetryClassNonRetryable RetryClass = "non_retryable"
)

// ClassifyModelError classifies an error from a model client query.
func ClassifyModelError(err error) RetryClass {
	if err == nil {
		return RetryClassNonRetryable
	}

	var mce *ModelClientError
	if errors.As(err, &mce) {
		switch {
		case mce.HTTPStatus == 429:
			return RetryClassRetryable
		case mce.HTTPStatus >= 500:
			return RetryClassRetryable
		case mce.HTTPStatus == 401 || mce.HTTPStatus == 403 || mce.HTTPStatus == 400 || mce.HTTPStatus == 402:
			return RetryClassNonRetryable
		}
	}

	errStr := strings.ToLower(err.Error())

	// Rate limits - retryable, respect Retry-After
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") {
		return RetryClassRetryable
	}

	// Server errors - retryable
	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") {
		return RetryClassRetryable
	}

	// Network errors - retryable
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "temporary failure") {
		return RetryClassRetryable
	}

	// Deadline expiry - maybe (limited retries); the run deadline will
	// cut the retry loop short regardless.
	if strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "timeout") {
		return RetryClassMaybe
	}

	// Context overflow - maybe (compaction may reclaim space before retry)
	if strings.Contains(errStr, "context length") ||
		strings.Contains(errStr, "token limit") ||
		strings.Contains(errStr, "maximum context length") {
		return RetryClassMaybe
	}

	// Auth, bad request, quota, safety refusals - non-retryable
	return RetryClassNonRetryable
}

// ClassifyToolError classifies an error from a tool execution.
// Fatal errors and validation errors are never retried.
func ClassifyToolError(err error, toolRetryable bool) RetryClass {
	if err == nil {
		return RetryClassNonRetryable
	}

	if IsFatalToolError(err) {
		return RetryClassNonRetryable
	}
	var ve *ToolValidationError
	if errors.As(err, &ve) {
		return RetryClassNonRetryable
	}
	if !toolRetryable {
		return RetryClassNonRetryable
	}

	errStr := strings.ToLower(err.Error())

	// Transient transport and OS failures - retryable
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "temporary") ||
		strings.Contains(errStr, "resource temporarily unavailable") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") {
		return RetryClassRetryable
	}

	// Deterministic failures - non-retryable
	if strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "no such file") ||
		strings.Contains(errStr, "invalid input") ||
		strings.Contains(errStr, "permission denied") {
		return RetryClassNonRetryable
	}

	// Unknown tool errors default to retryable when the policy allows it:
	// the model sees the final outcome either way.
	return RetryClassRetryable
}

// ExtractRetryAfter extracts a Retry-After duration from an error.
// Returns 0 if not found or invalid.
func ExtractRetryAfter(err error) time.Duration {
	var mce *ModelClientError
	if errors.As(err, &mce) && mce.RetryAfter != "" {
		var seconds int
		if _, serr := fmt.Sscanf(mce.RetryAfter, "%d", &seconds); serr == nil {
			return time.Duration(seconds) * time.Second
		}
		if t, perr := time.Parse(time.RFC1123, mce.RetryAfter); perr == nil {
			now := time.Now()
			if t.After(now) {
				return t.Sub(now)
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "retry after") {
		var seconds int
		if _, serr := fmt.Sscanf(errStr, "retry after %d", &seconds); serr == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	return 0
}

// RetryExhaustedError indicates that all retry attempts have been exhausted.
type RetryExhaustedError struct {
	Err         error
	Attempts    int
	MaxAttempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// IsRetryExhausted checks if an error is a RetryExhaustedError.
func IsRetryExhausted(err error) bool {
	var re *RetryExhaustedError
	return errors.As(err, &re)
}
