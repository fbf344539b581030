package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jt1777/Chatbot-sub001/internal/app"
	"github.com/jt1777/Chatbot-sub001/internal/chat"
	"github.com/jt1777/Chatbot-sub001/internal/config"
)

var (
	askTenant string
	askUser   string
	askLoose  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask a single question from the command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), args[0])
	},
}

func init() {
	askCmd.Flags().StringVar(&askTenant, "tenant", "default", "tenant whose corpus to search")
	askCmd.Flags().StringVar(&askUser, "user", "cli", "user identity for session history")
	askCmd.Flags().BoolVar(&askLoose, "no-strict", false, "answer even when retrieval fails or finds nothing")
	rootCmd.AddCommand(askCmd)
}

func runAsk(parent context.Context, message string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(parent, cfg)
	if err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}
	defer a.Close()

	result, err := a.Orchestrator.Respond(parent, chat.Request{
		TenantID: askTenant,
		UserID:   askUser,
		Message:  message,
		Strict:   !askLoose,
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Reply)
	if len(result.Passages) > 0 {
		fmt.Println("\nSources:")
		for _, p := range result.Passages {
			fmt.Printf("  %s (%.2f)\n", p.SourceID, p.Score)
		}
	}
	return nil
}
