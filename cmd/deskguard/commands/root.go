package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/fernandezvara/dbkit"
	"github.com/fernandezvara/deskguard"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbURL      string
	logLevel   string
	logFormat  string
	policyFile string
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "deskguard",
	Short: "Operator tooling for the helpdesk knowledge-base engine",
	Long: `deskguard manages the knowledge-base schema and its integrity.

It applies database migrations, recomputes category and tag article
counters, and evaluates the route and action policy for a set of roles.

Settings are read from DESKGUARD_* environment variables; flags override them.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (default $DESKGUARD_DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json or console")
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy", "", "YAML policy file (default built-in table)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// config merges the environment with the global flags.
func config() deskguard.Config {
	cfg := deskguard.ConfigFromEnv()
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if policyFile != "" {
		cfg.PolicyFile = policyFile
	}
	return cfg
}

func logger(cfg deskguard.Config) zerolog.Logger {
	return deskguard.NewLogger(cfg.Log)
}

// openStore connects to the database and applies the pool settings.
func openStore(ctx context.Context, cfg deskguard.Config) (*dbkit.DBKit, *deskguard.BunStore, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("--db flag or DESKGUARD_DATABASE_URL is required")
	}

	db, err := dbkit.New(dbkit.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to reach database: %w", err)
	}

	store := deskguard.NewBunStore(db)
	if err := store.ConfigurePool(cfg.Pool); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to configure connection pool: %w", err)
	}
	return db, store, nil
}
