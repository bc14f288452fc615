// Package config loads and validates the Studio configuration.
// Configuration is read from ~/.studio.yaml (or an explicit path) with
// STUDIO_* environment variable overrides, via viper.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete Studio configuration.
type Config struct {
	Agent   AgentConfig   `mapstructure:"agent"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AgentConfig controls how the sunwell agent subprocess is invoked.
type AgentConfig struct {
	// Binary is the agent executable name or path (default: "sunwell").
	Binary string `mapstructure:"binary"`
	// Strategy is the planning strategy passed to `agent run` (default: "harmonic").
	Strategy string `mapstructure:"strategy"`
	// Provider optionally pins a model provider ("openai", "anthropic", "ollama").
	// Empty means the agent's own default.
	Provider string `mapstructure:"provider"`
	// KillGraceSeconds is how long to wait after SIGTERM before escalating
	// to SIGKILL when stopping a run (default: 3).
	KillGraceSeconds int `mapstructure:"kill_grace_seconds"`
}

// StreamConfig controls the NDJSON event stream plumbing.
type StreamConfig struct {
	// SubscriberBuffer is the per-subscriber event buffer size. When a
	// subscriber falls this far behind, its oldest undelivered events are
	// dropped (default: 256).
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
	// MaxLineBytes caps the length of a single NDJSON line (default: 1 MiB).
	MaxLineBytes int `mapstructure:"max_line_bytes"`
	// StderrTailBytes is how much trailing stderr to retain for error
	// reporting (default: 64 KiB).
	StderrTailBytes int `mapstructure:"stderr_tail_bytes"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (default: INFO).
	Level string `mapstructure:"level"`
	// Dir is the log directory. Empty writes to stderr.
	Dir string `mapstructure:"dir"`
}

// Defaults applied when keys are absent from the config file.
const (
	DefaultBinary           = "sunwell"
	DefaultStrategy         = "harmonic"
	DefaultKillGraceSeconds = 3
	DefaultSubscriberBuffer = 256
	DefaultMaxLineBytes     = 1 << 20
	DefaultStderrTailBytes  = 64 << 10
)

// KillGrace returns the configured kill grace as a duration.
func (a AgentConfig) KillGrace() time.Duration {
	return time.Duration(a.KillGraceSeconds) * time.Second
}

// Load reads configuration from the default locations: an explicit path if
// given, otherwise .studio.yaml in the home directory. A missing config
// file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".studio")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// An explicit path must exist; for the default search a missing
		// file simply means defaults apply.
		if path != "" {
			return nil, err
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agent.binary", DefaultBinary)
	v.SetDefault("agent.strategy", DefaultStrategy)
	v.SetDefault("agent.provider", "")
	v.SetDefault("agent.kill_grace_seconds", DefaultKillGraceSeconds)
	v.SetDefault("stream.subscriber_buffer", DefaultSubscriberBuffer)
	v.SetDefault("stream.max_line_bytes", DefaultMaxLineBytes)
	v.SetDefault("stream.stderr_tail_bytes", DefaultStderrTailBytes)
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.dir", defaultLogDir())
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".studio", "logs")
}
