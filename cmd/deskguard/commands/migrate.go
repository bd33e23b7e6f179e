package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fernandezvara/deskguard"
	"github.com/spf13/cobra"
)

// migrateCmd applies the schema migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Create or upgrade the knowledge-base tables: categories, tags,
articles, article_tags and article_audit_log.

Migrations are idempotent; already applied ones are skipped.

Examples:
  deskguard migrate --db postgres://localhost/helpdesk
  DESKGUARD_DATABASE_URL=postgres://... deskguard migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config()
	log := logger(cfg)

	db, _, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := db.Migrate(ctx, deskguard.Migrations())
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	applied := make([]string, 0, len(result.Applied))
	for _, m := range result.Applied {
		applied = append(applied, m.ID)
		log.Info().Str("migration", m.ID).Msg("migration applied")
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{"applied": applied})
	}
	if len(applied) == 0 {
		fmt.Println("Schema is up to date")
		return nil
	}
	fmt.Printf("Applied %d migration(s)\n", len(applied))
	return nil
}
