package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jt1777/Chatbot-sub001/internal/app"
	"github.com/jt1777/Chatbot-sub001/internal/config"
	"github.com/jt1777/Chatbot-sub001/internal/corpus"
)

var (
	corpusTenant string
	corpusSource string
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the tenant's document corpus",
}

var corpusAddCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Embed and store a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCorpus(cmd.Context(), func(ctx context.Context, store *corpus.Store) error {
			id, err := store.Add(ctx, corpusTenant, corpusSource, args[0], nil)
			if err != nil {
				return err
			}
			fmt.Printf("added document %s\n", id)
			return nil
		})
	},
}

var corpusDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete all documents from a source",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withCorpus(cmd.Context(), func(ctx context.Context, store *corpus.Store) error {
			n, err := store.DeleteBySource(ctx, corpusTenant, corpusSource)
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d documents\n", n)
			return nil
		})
	},
}

var corpusCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count the tenant's documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withCorpus(cmd.Context(), func(ctx context.Context, store *corpus.Store) error {
			n, err := store.Count(ctx, corpusTenant)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		})
	},
}

func init() {
	corpusCmd.PersistentFlags().StringVar(&corpusTenant, "tenant", "default", "tenant owning the documents")
	corpusCmd.PersistentFlags().StringVar(&corpusSource, "source", "cli", "source identifier for the documents")
	corpusCmd.AddCommand(corpusAddCmd, corpusDeleteCmd, corpusCountCmd)
	rootCmd.AddCommand(corpusCmd)
}

func withCorpus(ctx context.Context, fn func(context.Context, *corpus.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}
	defer a.Close()

	return fn(ctx, a.Corpus)
}
