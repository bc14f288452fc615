package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sunwell/studio/internal/agent"
	"github.com/sunwell/studio/internal/workspace"
)

var backlogCmd = &cobra.Command{
	Use:   "backlog <goal-id>",
	Short: "Execute a single backlog goal by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacklog,
}

var (
	backlogProvider string
	backlogDir      string
)

func init() {
	backlogCmd.Flags().StringVar(&backlogProvider, "provider", "", "model provider (openai, anthropic, ollama)")
	backlogCmd.Flags().StringVarP(&backlogDir, "dir", "d", "", "workspace directory (default: current)")
	rootCmd.AddCommand(backlogCmd)
}

func runBacklog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer log.Close()

	proj, err := workspace.DirResolver{}.Resolve(backlogDir)
	if err != nil {
		return err
	}

	provider := backlogProvider
	if provider == "" {
		provider = cfg.Agent.Provider
	}

	b := newBridge(cfg, log)

	return streamRun(b, func() error {
		_, err := b.RunBacklogGoal(args[0], agent.RunOptions{
			Provider: provider,
			Dir:      proj.Root,
		})
		return err
	})
}
