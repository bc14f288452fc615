package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sunwell/studio/internal/agent"
	"github.com/sunwell/studio/internal/workspace"
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a single chat message and stream the reply",
	Long: `Chat streams the agent's reply as it is generated. The final line of
the stream is the result document; a run that ends without one fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

var (
	chatProvider string
	chatDir      string
)

func init() {
	chatCmd.Flags().StringVar(&chatProvider, "provider", "", "model provider (openai, anthropic, ollama)")
	chatCmd.Flags().StringVarP(&chatDir, "dir", "d", "", "workspace directory (default: current)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer log.Close()

	proj, err := workspace.DirResolver{}.Resolve(chatDir)
	if err != nil {
		return err
	}

	provider := chatProvider
	if provider == "" {
		provider = cfg.Agent.Provider
	}

	b := newBridge(cfg, log)

	return streamRun(b, func() error {
		_, err := b.Chat(strings.Join(args, " "), agent.RunOptions{
			Provider: provider,
			Dir:      proj.Root,
		})
		return err
	})
}
