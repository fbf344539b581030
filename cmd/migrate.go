package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jt1777/Chatbot-sub001/db"
	"github.com/jt1777/Chatbot-sub001/internal/app"
	"github.com/jt1777/Chatbot-sub001/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.PostgresURL == "" {
			return fmt.Errorf("postgres_url is required")
		}
		return db.Migrate(cfg.PostgresURL, app.NewLogger(cfg))
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
