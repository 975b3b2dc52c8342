package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the browser profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tENGINE\tVIEWPORT\tTIMING")
		for _, p := range suite.Profiles.All() {
			name := p.Name
			if name == suite.Config.Profile {
				name = okText(name + " *")
			}
			timing := "fast"
			if p.IsSlow() {
				timing = warnText("slow")
			}
			fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\n", name, p.Engine, p.Width, p.Height, timing)
		}
		return w.Flush()
	},
}
