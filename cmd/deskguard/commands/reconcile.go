package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fernandezvara/deskguard"
	"github.com/spf13/cobra"
)

// reconcileCmd recomputes every article counter
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute category and tag article counters",
	Long: `Recompute article_count of every category and tag from the
article associations and overwrite the stored values.

Counters that had drifted are listed with their stored and computed values.

Examples:
  deskguard reconcile --db postgres://localhost/helpdesk
  deskguard reconcile --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config()

	policy, err := cfg.LoadPolicy()
	if err != nil {
		return err
	}

	db, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := deskguard.NewService(store, policy, deskguard.WithLogger(logger(cfg)))
	operator := deskguard.NewSession("deskguard-cli", deskguard.RoleSuperAdmin)

	report, err := svc.ReconcileAll(ctx, operator)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Checked %d categories and %d tags\n", report.Categories, report.Tags)
	if len(report.Drift) == 0 {
		fmt.Println("All counters were correct")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tSTORED\tCOMPUTED")
	for _, d := range report.Drift {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", d.Kind, d.Name, d.Stored, d.Computed)
	}
	return w.Flush()
}
