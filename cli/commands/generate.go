package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/relay/core"
)

var (
	generateConversation string
	generateOut          string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate structured test cases from the current conversation",
	Long: `Ask the agent to generate structured test cases from the requirement
dialogue held so far. Progress is reported on stderr; the resulting
case payload is written to stdout or to --out.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateConversation, "conversation", "c", "", "conversation id holding the requirements")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "write the case payload to this file instead of stdout")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	orch, cleanup, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	op := &core.Operation{
		Kind:           core.KindGenerate,
		ConversationID: generateConversation,
	}

	stream, err := orch.ExecuteStream(cmd.Context(), target, op)
	if err != nil {
		return err
	}

	for ev := range stream.Events {
		switch ev.Type {
		case core.EventProgress:
			fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", ev.Progress.Percent, ev.Progress.Message)
		case core.EventContent:
			// Generation streams carry the payload in the terminal
			// event; deltas are progress noise here.
		case core.EventComplete:
			return writeCases(ev.Complete)
		case core.EventError:
			return fmt.Errorf("generation failed: %s", ev.Err)
		}
	}
	return fmt.Errorf("generation stream ended without a result")
}

func writeCases(data *core.CompleteData) error {
	payload := []byte(data.Cases)
	if len(payload) == 0 {
		payload = []byte(data.Content)
	}

	if generateOut == "" {
		_, err := os.Stdout.Write(append(payload, '\n'))
		return err
	}
	if err := os.WriteFile(generateOut, payload, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote case payload to %s\n", generateOut)
	return nil
}
