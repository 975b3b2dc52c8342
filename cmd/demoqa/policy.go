package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"demoqa-e2e/domain/retry"
)

var policyAll bool

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the retry policy table",
	Long: `Print attempts, timeouts and backoff of every resilient operation.

By default only the current environment (CI or local) is shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := retry.EnvironmentFor(suite.Config.CI)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tOPERATION\tATTEMPTS\tTIMEOUT\tFALLBACK\tBACKOFF\tGROWTH")
		for _, key := range retry.Order {
			if !policyAll && key.Environment != env {
				continue
			}
			p := suite.Policies.Lookup(key.Speed, key.Environment)
			for _, op := range []struct {
				name string
				s    retry.Schedule
			}{
				{"navigation", p.Navigation},
				{"element", p.Element},
				{"click", p.Click},
				{"fill", p.Fill},
			} {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
					key, op.name, op.s.MaxAttempts, op.s.BaseTimeout, op.s.FallbackTimeout, op.s.Backoff, op.s.Growth)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dimText(fmt.Sprintf("environment: %s", env)))
		return nil
	},
}

func init() {
	policyCmd.Flags().BoolVar(&policyAll, "all", false, "Show both environments")
}
