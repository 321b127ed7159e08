package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report the target's mode, circuit state, and upstream reachability",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	orch, cleanup, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	status := orch.Health(cmd.Context(), target)

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(status)
	}

	fmt.Printf("target:   %s\n", status.Target)
	fmt.Printf("mode:     %s\n", status.Mode)
	if status.ModeReason != "" {
		fmt.Printf("reason:   %s\n", status.ModeReason)
	}
	fmt.Printf("circuit:  %s\n", status.CircuitState)
	fmt.Printf("upstream: %s\n", status.Upstream)
	return nil
}
