// Package cmd implements the chatbot command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "chatbot",
	Short:         "Tenant-scoped retrieval-augmented chat engine",
	Long:          "chatbot serves a retrieval-augmented chat API backed by PostgreSQL with pgvector.\nConfiguration comes from chatbot.yaml and CHATBOT_* environment variables.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
