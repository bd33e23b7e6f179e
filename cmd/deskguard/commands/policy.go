package commands

import (
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// policyCmd prints the effective policy table
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the effective route and action table as YAML",
	Long: `Print the route and action table in the format accepted by --policy.

Examples:
  deskguard policy > policy.yaml
  deskguard policy --policy policy.yaml   # validate and normalise a file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPolicy(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(policyCmd)
}

func runPolicy(w io.Writer) error {
	policy, err := config().LoadPolicy()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(policy.Registry())
}
