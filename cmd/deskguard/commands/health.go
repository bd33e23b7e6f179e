package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// healthCmd reports database health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity and pool statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealth(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, store, err := openStore(ctx, config())
	if err != nil {
		return err
	}
	defer db.Close()

	health := store.Health(ctx)
	stats := store.PoolStats()

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{"health": health, "pool": stats})
	}

	if !health.Healthy {
		return fmt.Errorf("database unhealthy: %s", health.Error)
	}
	fmt.Printf("healthy (open=%d in_use=%d idle=%d)\n", stats.OpenConnections, stats.InUse, stats.Idle)
	return nil
}
