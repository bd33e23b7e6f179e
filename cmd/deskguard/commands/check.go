package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fernandezvara/deskguard"
	"github.com/spf13/cobra"
)

var (
	// Check flags
	checkRoles  string
	checkAction bool
)

// checkCmd evaluates the policy for a path or action
var checkCmd = &cobra.Command{
	Use:   "route-check <path|action>",
	Short: "Evaluate the policy for a route or action",
	Long: `Report whether a role set may open a route or perform an action.

Routes fall back to their closest configured ancestor. A path with no
configured ancestor is allowed for any authenticated role set.

Examples:
  deskguard route-check /dashboard/settings/roles --roles admin
  deskguard route-check articles.status --action --roles supervisor
  deskguard route-check /dashboard/reports --roles agent,supervisor --policy policy.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkRoles, "roles", "r", "agent", "Comma-separated roles held by the actor")
	checkCmd.Flags().BoolVar(&checkAction, "action", false, "Treat the argument as an action identifier")
}

func runCheck(w io.Writer, target string) error {
	cfg := config()
	policy, err := cfg.LoadPolicy()
	if err != nil {
		return err
	}

	roles, err := deskguard.ParseRoleSet(strings.Split(checkRoles, ",")...)
	if err != nil {
		return err
	}
	session := &deskguard.Session{ActorID: "deskguard-cli", Roles: roles, IsActive: true}

	if checkAction {
		err = policy.Authorize(session, target)
	} else {
		err = policy.AuthorizeRoute(session, target)
	}

	decision := "allow"
	reason := ""
	if err != nil {
		decision = "deny"
		reason = err.Error()
	}

	if jsonOutput {
		return json.NewEncoder(w).Encode(map[string]string{
			"target":   target,
			"roles":    roles.String(),
			"decision": decision,
			"reason":   reason,
		})
	}

	fmt.Fprintf(w, "%s %s for [%s]\n", decision, target, roles)
	if reason != "" {
		fmt.Fprintln(w, reason)
	}
	return nil
}
