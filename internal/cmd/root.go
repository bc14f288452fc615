package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunwell/studio/internal/config"
	"github.com/sunwell/studio/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Stream sunwell agent runs as structured events",
	Long: `Studio drives the sunwell CLI agent as a supervised subprocess,
turning its NDJSON output into an ordered, structured event stream.
Runs can be started, resumed, and cancelled cleanly; every run ends in
a definite completed, failed, or cancelled state.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var (
	cfgFile  string
	logLevel string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.studio.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
}

// loadConfig reads the configuration, applying the --log-level override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logging.ParseLevel(logLevel)
	}
	return cfg, nil
}

// newLogger builds the file-backed logger from config. Logging failures
// degrade to a no-op logger rather than blocking the run.
func newLogger(cfg *config.Config) *logging.Logger {
	if cfg.Logging.Dir == "" {
		return logging.Nop()
	}
	log, err := logging.NewFile(cfg.Logging.Dir, logging.ParseLevel(cfg.Logging.Level))
	if err != nil {
		return logging.Nop()
	}
	return log
}
