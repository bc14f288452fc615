package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunwell/studio/internal/agent"
)

var lensesCmd = &cobra.Command{
	Use:   "lenses",
	Short: "List the lenses the agent knows about",
	Args:  cobra.NoArgs,
	RunE:  runLenses,
}

func init() {
	rootCmd.AddCommand(lensesCmd)
}

// lensInfo mirrors one entry of `sunwell lens list --json`.
type lensInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func runLenses(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var lenses []lensInfo
	if err := agent.Oneshot(cmd.Context(), cfg.Agent.Binary, []string{"lens", "list", "--json"}, "", &lenses); err != nil {
		return err
	}

	if len(lenses) == 0 {
		fmt.Println("No lenses available.")
		return nil
	}
	for _, l := range lenses {
		if l.Description != "" {
			fmt.Printf("%-20s %s\n", l.Name, l.Description)
		} else {
			fmt.Println(l.Name)
		}
	}
	return nil
}
