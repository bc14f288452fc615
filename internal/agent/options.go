package agent

import (
	"time"

	"github.com/sunwell/studio/internal/logging"
)

const (
	// DefaultBinary is the agent CLI executable name.
	DefaultBinary = "sunwell"
	// DefaultStrategy is the planning strategy passed to agent runs.
	DefaultStrategy = "harmonic"
	// DefaultKillGrace is how long Stop waits after SIGTERM before SIGKILL.
	DefaultKillGrace = 3 * time.Second
	// DefaultSubscriberBuffer is the per-subscriber event channel capacity.
	DefaultSubscriberBuffer = 256
	// DefaultStderrTailBytes bounds how much trailing stderr is kept for
	// error classification.
	DefaultStderrTailBytes = 64 << 10
)

// Option configures a Bridge.
type Option func(*bridgeConfig)

type bridgeConfig struct {
	binary           string
	strategy         string
	killGrace        time.Duration
	subscriberBuffer int
	maxLineBytes     int
	stderrTailBytes  int
	logger           *logging.Logger
}

// WithBinary sets the agent executable. An empty value is replaced with
// the default ("sunwell").
func WithBinary(binary string) Option {
	return func(c *bridgeConfig) {
		c.binary = binary
	}
}

// WithStrategy sets the default planning strategy for agent runs.
func WithStrategy(strategy string) Option {
	return func(c *bridgeConfig) {
		c.strategy = strategy
	}
}

// WithKillGrace sets how long Stop waits between SIGTERM and SIGKILL.
// A zero or negative value is replaced with the default (3s).
func WithKillGrace(d time.Duration) Option {
	return func(c *bridgeConfig) {
		c.killGrace = d
	}
}

// WithSubscriberBuffer sets the per-subscriber event channel capacity.
func WithSubscriberBuffer(n int) Option {
	return func(c *bridgeConfig) {
		c.subscriberBuffer = n
	}
}

// WithMaxLineBytes caps how large a single NDJSON line may grow before
// the stream is considered corrupt.
func WithMaxLineBytes(n int) Option {
	return func(c *bridgeConfig) {
		c.maxLineBytes = n
	}
}

// WithStderrTailBytes sets the size of the stderr tail buffer.
func WithStderrTailBytes(n int) Option {
	return func(c *bridgeConfig) {
		c.stderrTailBytes = n
	}
}

// WithLogger sets the logger for the bridge.
func WithLogger(logger *logging.Logger) Option {
	return func(c *bridgeConfig) {
		c.logger = logger
	}
}
