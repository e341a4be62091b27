// Package domain provides shared domain-level sentinel and typed errors.
//
// Everything below the orchestrator boundary is caught and converted to one
// of the error kinds defined here. Only ConfigurationError may abort process
// startup; the rest are per-call results.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// AdmissionDeniedError reports a rate-limit or circuit-breaker rejection.
// It is recoverable: the caller may retry after RetryAfter (when non-zero).
type AdmissionDeniedError struct {
	Reason     string
	RetryAfter time.Duration
}

func (e *AdmissionDeniedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("admission denied: %s (retry after %s)", e.Reason, e.RetryAfter)
	}
	return "admission denied: " + e.Reason
}

// ValidationError reports a malformed payload, tool definition, or request.
// At catalog-load time it is fatal; at request time it is a per-call rejection.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ExecutionError reports an executor failure during tool execution.
// The failure is surfaced, never retried automatically, and never rolled
// back automatically.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %s: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ConfigurationError reports a fatal startup misconfiguration, such as a
// write-capable tool without a registered executor. It is never deferred to
// request time.
type ConfigurationError struct {
	Missing []string
	Msg     string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return "configuration: missing executors for tools: " + strings.Join(e.Missing, ", ")
	}
	return "configuration: " + e.Msg
}

// ConflictError reports an attempt to transition a proposal that is already
// in a terminal status. The proposal is left unchanged.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Msg }
