package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // config field path, e.g. "stream.subscriber_buffer"
	Value   any    // the invalid value
	Message string
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// knownProviders lists the providers the agent accepts for --provider.
var knownProviders = []string{"openai", "anthropic", "ollama"}

// Validate checks the Config for invalid values. It returns nil when the
// configuration is usable, or a ValidationErrors listing every problem.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.Agent.Binary) == "" {
		errs = append(errs, ValidationError{
			Field: "agent.binary", Value: c.Agent.Binary,
			Message: "agent binary must not be empty",
		})
	}
	if c.Agent.KillGraceSeconds < 0 {
		errs = append(errs, ValidationError{
			Field: "agent.kill_grace_seconds", Value: c.Agent.KillGraceSeconds,
			Message: "must be >= 0",
		})
	}
	if c.Agent.Provider != "" && !slices.Contains(knownProviders, c.Agent.Provider) {
		errs = append(errs, ValidationError{
			Field: "agent.provider", Value: c.Agent.Provider,
			Message: fmt.Sprintf("must be one of %s", strings.Join(knownProviders, ", ")),
		})
	}

	if c.Stream.SubscriberBuffer < 1 {
		errs = append(errs, ValidationError{
			Field: "stream.subscriber_buffer", Value: c.Stream.SubscriberBuffer,
			Message: "must be >= 1",
		})
	}
	if c.Stream.MaxLineBytes < 1024 {
		errs = append(errs, ValidationError{
			Field: "stream.max_line_bytes", Value: c.Stream.MaxLineBytes,
			Message: "must be >= 1024",
		})
	}
	if c.Stream.StderrTailBytes < 1024 {
		errs = append(errs, ValidationError{
			Field: "stream.stderr_tail_bytes", Value: c.Stream.StderrTailBytes,
			Message: "must be >= 1024",
		})
	}

	level := strings.ToUpper(c.Logging.Level)
	if !slices.Contains([]string{"DEBUG", "INFO", "WARN", "ERROR"}, level) {
		errs = append(errs, ValidationError{
			Field: "logging.level", Value: c.Logging.Level,
			Message: "must be one of DEBUG, INFO, WARN, ERROR",
		})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
