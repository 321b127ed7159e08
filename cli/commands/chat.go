package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/relay/core"
)

var (
	chatMessage      string
	chatConversation string
	chatStream       bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send one message to the agent",
	Long: `Send one conversational message to the agent backend and print the
reply. With --stream the reply is printed as it arrives. Omit
--conversation to start a new conversation; the assigned id is printed
so follow-up messages can continue it.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "message text (required)")
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "conversation id to continue")
	chatCmd.Flags().BoolVar(&chatStream, "stream", false, "stream the reply as it arrives")
	_ = chatCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	orch, cleanup, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	op := &core.Operation{
		Kind:           core.KindMessage,
		ConversationID: chatConversation,
		Message:        chatMessage,
	}

	ctx := cmd.Context()
	if chatStream {
		return streamChat(ctx, orch, op)
	}

	res, err := orch.Execute(ctx, target, op)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(res)
	}

	fmt.Println(res.Reply)
	if !res.Live {
		fmt.Fprintln(os.Stderr, "(served by the local fallback responder)")
	}
	if res.ConversationID != "" {
		fmt.Fprintf(os.Stderr, "conversation: %s\n", res.ConversationID)
	}
	return nil
}

func streamChat(ctx context.Context, orch *core.Orchestrator, op *core.Operation) error {
	stream, err := orch.ExecuteStream(ctx, target, op)
	if err != nil {
		return err
	}

	for ev := range stream.Events {
		switch ev.Type {
		case core.EventContent:
			fmt.Print(ev.Content)
		case core.EventProgress:
			fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", ev.Progress.Percent, ev.Progress.Message)
		case core.EventComplete:
			fmt.Println()
			if !stream.Live {
				fmt.Fprintln(os.Stderr, "(served by the local fallback responder)")
			}
			if ev.Complete.ConversationID != "" {
				fmt.Fprintf(os.Stderr, "conversation: %s\n", ev.Complete.ConversationID)
			}
		case core.EventError:
			fmt.Println()
			return fmt.Errorf("stream failed: %s", ev.Err)
		}
	}
	return nil
}
