package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sunwell/studio/internal/agent"
	"github.com/sunwell/studio/internal/workspace"
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run the agent toward a goal",
	Long: `Run starts a sunwell agent run for the given goal and streams its
events until the run completes, fails, or is cancelled with Ctrl-C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var (
	runLens       string
	runNoAutoLens bool
	runProvider   string
	runStrategy   string
	runDir        string
)

func init() {
	runCmd.Flags().StringVar(&runLens, "lens", "", "explicit lens name (e.g. coder, tech-writer)")
	runCmd.Flags().BoolVar(&runNoAutoLens, "no-auto-lens", false, "disable automatic lens detection")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "model provider (openai, anthropic, ollama)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "planning strategy (default from config)")
	runCmd.Flags().StringVarP(&runDir, "dir", "d", "", "workspace directory (default: current)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer log.Close()

	proj, err := workspace.DirResolver{}.Resolve(runDir)
	if err != nil {
		return err
	}

	provider := runProvider
	if provider == "" {
		provider = cfg.Agent.Provider
	}

	b := newBridge(cfg, log)
	goal := strings.Join(args, " ")

	fmt.Printf("Running in %s (%s)\n", workspace.Shorten(proj.Root), proj.Kind)

	return streamRun(b, func() error {
		_, err := b.Run(goal, agent.RunOptions{
			Lens:       runLens,
			NoAutoLens: runNoAutoLens,
			Provider:   provider,
			Strategy:   runStrategy,
			Dir:        proj.Root,
		})
		return err
	})
}
