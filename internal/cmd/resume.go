package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunwell/studio/internal/workspace"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [path]",
	Short: "Resume an interrupted run from its checkpoint",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResume,
}

var resumeProvider string

func init() {
	resumeCmd.Flags().StringVar(&resumeProvider, "provider", "", "model provider (openai, anthropic, ollama)")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer log.Close()

	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	proj, err := workspace.DirResolver{}.Resolve(path)
	if err != nil {
		return err
	}
	if !proj.HasCheckpoint {
		return fmt.Errorf("no interrupted run to resume in %s", workspace.Shorten(proj.Root))
	}

	provider := resumeProvider
	if provider == "" {
		provider = cfg.Agent.Provider
	}

	b := newBridge(cfg, log)

	fmt.Printf("Resuming in %s\n", workspace.Shorten(proj.Root))

	return streamRun(b, func() error {
		_, err := b.Resume(proj.Root, provider)
		return err
	})
}
