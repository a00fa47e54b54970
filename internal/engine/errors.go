// Package engine provides the plan/generate/test/reflect orchestration loop.
// This file contains error classification and handling.

package engine

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Stage failures. All but ErrBudgetExhausted are recovered inside the loop and
// only ever show up as feedback; ErrBudgetExhausted is returned in Result.Err.
var (
	ErrPlanning        = errors.New("planning failed")
	ErrGeneration      = errors.New("code generation failed")
	ErrReflection      = errors.New("reflection failed")
	ErrBudgetExhausted = errors.New("attempt budget exhausted")
)

// StageError wraps a failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Kind  error // one of the Err* sentinels
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// NewStageError creates a StageError.
func NewStageError(stage Stage, kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// IsBudgetExhausted reports whether err marks a run that ran out of attempts.
func IsBudgetExhausted(err error) bool {
	return errors.Is(err, ErrBudgetExhausted)
}

// RetryClass indicates whether an error is worth another attempt soon.
type RetryClass string

const (
	RetryClassRetryable    RetryClass = "retryable"     // Transient, back off and try again
	RetryClassMaybe        RetryClass = "maybe"         // Could pass on a later attempt
	RetryClassNonRetryable RetryClass = "non_retryable" // Will fail again the same way
)

// EngineError wraps provider errors with classification metadata.
type EngineError struct {
	Err         error
	Class       RetryClass
	HTTPStatus  int    // HTTP status code if applicable
	RetryAfter  string // Retry-After header value if present
	IsRateLimit bool
	IsTimeout   bool
	IsNetwork   bool
	IsAuth      bool
	IsQuota     bool
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("engine error: %s", e.Class)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Kind returns a short label for feedback messages.
func (e *EngineError) Kind() string {
	switch {
	case e.IsRateLimit:
		return "rate_limit"
	case e.IsAuth:
		return "auth"
	case e.IsQuota:
		return "quota"
	case e.IsTimeout:
		return "timeout"
	case e.IsNetwork:
		return "network"
	}
	return string(e.Class)
}

// retryableStatusPattern matches a retryable HTTP status quoted in an error
// message as a standalone number.
var retryableStatusPattern = regexp.MustCompile(`\b(?:429|50[0234])\b`)

// ClassifyLLMError classifies an error from an LLM provider call.
func ClassifyLLMError(err error) RetryClass {
	if err == nil {
		return RetryClassNonRetryable
	}

	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Class
	}

	errStr := strings.ToLower(err.Error())

	// Rate limits and server errors
	if retryableStatusPattern.MatchString(errStr) ||
		containsAny(errStr, "rate limit", "too many requests", "internal server error",
			"bad gateway", "service unavailable", "gateway timeout") {
		return RetryClassRetryable
	}

	if containsAny(errStr, "timeout", "connection reset", "connection refused",
		"no such host", "network", "dns", "temporary failure") {
		return RetryClassRetryable
	}

	if containsAny(errStr, "context deadline exceeded", "deadline exceeded",
		"context length", "token limit", "maximum context length") {
		return RetryClassMaybe
	}

	// 4xx, quota, safety refusals and anything unknown
	return RetryClassNonRetryable
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is worth backing off for before the next attempt.
func IsTransient(err error) bool {
	return err != nil && ClassifyLLMError(err) == RetryClassRetryable
}

// ExtractRetryAfter extracts the Retry-After value from an error.
// Returns 0 if not found or invalid.
func ExtractRetryAfter(err error) time.Duration {
	if err == nil {
		return 0
	}
	var engineErr *EngineError
	if errors.As(err, &engineErr) && engineErr.RetryAfter != "" {
		var seconds int
		if _, err := fmt.Sscanf(engineErr.RetryAfter, "%d", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if t, err := time.Parse(time.RFC1123, engineErr.RetryAfter); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	if idx := strings.Index(errStr, "retry after"); idx != -1 {
		var seconds int
		if _, err := fmt.Sscanf(errStr[idx:], "retry after %d", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	return 0
}

// WrapLLMError wraps an LLM provider error with classification metadata.
func WrapLLMError(err error, httpStatus int, retryAfter string) error {
	if err == nil {
		return nil
	}

	return &EngineError{
		Err:         err,
		Class:       classifyStatus(err, httpStatus),
		HTTPStatus:  httpStatus,
		RetryAfter:  retryAfter,
		IsRateLimit: httpStatus == http.StatusTooManyRequests,
		IsTimeout:   httpStatus == http.StatusGatewayTimeout || httpStatus == http.StatusRequestTimeout,
		IsNetwork:   httpStatus == 0 || httpStatus >= 500,
		IsAuth:      httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden,
		IsQuota:     httpStatus == http.StatusPaymentRequired,
	}
}

// classifyStatus prefers a known HTTP status over the error text.
func classifyStatus(err error, httpStatus int) RetryClass {
	switch {
	case httpStatus == http.StatusTooManyRequests, httpStatus == http.StatusRequestTimeout,
		httpStatus >= http.StatusInternalServerError:
		return RetryClassRetryable
	case httpStatus == http.StatusUnauthorized, httpStatus == http.StatusForbidden,
		httpStatus == http.StatusPaymentRequired:
		return RetryClassNonRetryable
	}
	return ClassifyLLMError(err)
}

// Describe renders err for a feedback message, prefixed with its class when known.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var engineErr *EngineError
	if errors.As(err, &engineErr) && engineErr.HTTPStatus != 0 {
		return fmt.Sprintf("[%s] %v", engineErr.Kind(), err)
	}
	return err.Error()
}
