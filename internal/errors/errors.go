// Package errors provides the coded error system shared between Studio and
// the sunwell agent. Every error carries a numeric code, a category, a
// recoverability flag, and recovery hints that the frontend can display
// verbatim.
//
// # Error Codes
//
// Codes mirror the agent's error taxonomy so that errors parsed out of the
// agent's JSON output and errors raised locally share one vocabulary:
//
//   - 1xxx model errors (auth, rate limits, provider availability)
//   - 5xxx config errors
//   - 6xxx runtime errors (concurrent run limit, process failures)
//   - 7xxx io errors (network, file access)
//
// # Usage
//
// Creating errors:
//
//	err := errors.New(errors.CodeProcessFailed, "agent exited unexpectedly")
//	err = err.WithHints("Check if sunwell CLI is installed")
//
//	// Wrapping a lower-level error
//	err := errors.FromError(errors.CodeProcessFailed, spawnErr)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrAlreadyRunning) { ... }
//
//	var coded *errors.Error
//	if errors.As(err, &coded) {
//	    fmt.Println(coded.ID, coded.RecoveryHints)
//	}
//
//	if errors.IsRecoverable(err) { ... }
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions so callers import only this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code identifies an error class shared with the agent's taxonomy.
type Code int

const (
	// CodeUnknown is the fallback for errors that could not be classified.
	CodeUnknown Code = 0

	// Model errors (1xxx), classified out of agent stderr.
	CodeModelAuthFailed          Code = 1002
	CodeModelRateLimited         Code = 1003
	CodeModelProviderUnavailable Code = 1009

	// Config errors (5xxx).
	CodeConfigMissing Code = 5001
	CodeConfigInvalid Code = 5002

	// Runtime errors (6xxx).
	CodeStateInvalid    Code = 6001
	CodeConcurrentLimit Code = 6003
	CodeProcessFailed   Code = 6010

	// IO errors (7xxx).
	CodeNetworkUnreachable   Code = 7001
	CodeNetworkTimeout       Code = 7002
	CodeFileNotFound         Code = 7003
	CodeFilePermissionDenied Code = 7004
)

// Category returns the category name for this code.
func (c Code) Category() string {
	switch int(c) / 1000 {
	case 1:
		return "model"
	case 5:
		return "config"
	case 6:
		return "runtime"
	case 7:
		return "io"
	default:
		return "unknown"
	}
}

// Recoverable reports whether errors with this code are typically
// recoverable by retrying or by user action mid-session.
func (c Code) Recoverable() bool {
	switch c {
	case CodeModelAuthFailed, CodeConfigMissing, CodeConfigInvalid,
		CodeStateInvalid, CodeFileNotFound, CodeFilePermissionDenied:
		return false
	default:
		return true
	}
}

// defaultHints returns the built-in recovery hints for a code.
func (c Code) defaultHints() []string {
	switch c {
	case CodeProcessFailed:
		return []string{
			"Check if sunwell CLI is installed",
			"Try running 'sunwell --help' to verify",
			"Check your PATH includes sunwell",
		}
	case CodeConcurrentLimit:
		return []string{
			"Wait for the current operation to complete",
			"Or stop the agent first",
		}
	case CodeModelAuthFailed:
		return []string{
			"Set the API key environment variable",
			"Check if your API key is valid and not expired",
		}
	case CodeModelRateLimited:
		return []string{
			"Wait before retrying",
			"Switch to a different model or provider",
		}
	case CodeModelProviderUnavailable:
		return []string{
			"For Ollama: run 'ollama serve'",
			"Check the provider URL is correct",
			"Switch to a different provider with --provider",
		}
	case CodeFileNotFound:
		return []string{
			"Check if the path is correct",
			"Verify the file exists",
		}
	case CodeFilePermissionDenied:
		return []string{
			"Check file permissions",
			"Run with appropriate permissions",
		}
	default:
		return nil
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrAlreadyRunning indicates a run was requested while one is active.
	ErrAlreadyRunning = errors.New("agent already running")
	// ErrNotRunning indicates an operation that requires an active run.
	ErrNotRunning = errors.New("agent is not running")
	// ErrSessionTerminal indicates an operation on an already-finished session.
	ErrSessionTerminal = errors.New("session already finished")
	// ErrKillFailed indicates the agent process could not be terminated.
	ErrKillFailed = errors.New("failed to kill agent process")
)

// -----------------------------------------------------------------------------
// Coded Error
// -----------------------------------------------------------------------------

// Error is a structured, coded error. It serializes to the same JSON shape
// the agent emits, so errors can round-trip through the event stream.
type Error struct {
	ID            string   `json:"error_id"`
	Code          Code     `json:"code"`
	Category      string   `json:"category"`
	Message       string   `json:"message"`
	Recoverable   bool     `json:"recoverable"`
	RecoveryHints []string `json:"recovery_hints,omitempty"`

	cause error
}

// New creates a coded error with default hints for the code.
func New(code Code, message string) *Error {
	return &Error{
		ID:            fmt.Sprintf("SW-%04d", int(code)),
		Code:          code,
		Category:      code.Category(),
		Message:       message,
		Recoverable:   code.Recoverable(),
		RecoveryHints: code.defaultHints(),
	}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromError wraps a lower-level error, preserving it as the cause.
func FromError(code Code, err error) *Error {
	e := New(code, err.Error())
	e.cause = err
	return e
}

// WithHints replaces the recovery hints.
func (e *Error) WithHints(hints ...string) *Error {
	e.RecoveryHints = hints
	return e
}

// WithCause attaches an underlying error for Unwrap.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.ID, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches either another coded error with the same code or the cause.
func (e *Error) Is(target error) bool {
	var coded *Error
	if errors.As(target, &coded) {
		return coded.Code == e.Code
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// FromJSON parses an agent-emitted structured error. Returns nil if the
// string is not a well-formed coded error.
func FromJSON(s string) *Error {
	var e Error
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		return nil
	}
	if e.ID == "" && e.Code == 0 {
		return nil
	}
	if e.Category == "" {
		e.Category = e.Code.Category()
	}
	return &e
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// CodeOf returns the code of err, or CodeUnknown if err carries none.
func CodeOf(err error) Code {
	var coded *Error
	if As(err, &coded) {
		return coded.Code
	}
	return CodeUnknown
}

// IsRecoverable reports whether err represents a condition the user can
// recover from without restarting Studio.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var coded *Error
	if As(err, &coded) {
		return coded.Recoverable
	}
	return false
}

// ClassifyOutput maps raw agent output (stderr text or an unstructured
// error line) to a coded error. Structured JSON errors are parsed as-is;
// otherwise common failure patterns are matched, falling back to
// CodeUnknown.
func ClassifyOutput(s string) *Error {
	s = strings.TrimSpace(s)
	if e := FromJSON(s); e != nil {
		return e
	}

	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "not found") || strings.Contains(lower, "no such file"):
		return New(CodeFileNotFound, s)
	case strings.Contains(lower, "permission denied"):
		return New(CodeFilePermissionDenied, s)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "unavailable"):
		return New(CodeModelProviderUnavailable, s)
	case strings.Contains(lower, "rate limit"):
		return New(CodeModelRateLimited, s)
	case strings.Contains(lower, "auth") || strings.Contains(lower, "api key") || strings.Contains(lower, "401"):
		return New(CodeModelAuthFailed, s)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return New(CodeNetworkTimeout, s)
	default:
		return New(CodeUnknown, s)
	}
}
