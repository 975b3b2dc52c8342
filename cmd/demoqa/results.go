package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"demoqa-e2e/domain/report"
)

var resultsLimit int

var resultsCmd = &cobra.Command{
	Use:   "results [run-id]",
	Short: "List stored test results",
	Long: `List the most recent stored results, or every result of one run.

Results are only stored across processes when DEMOQA_MONGO_URI is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !suite.Persistent() {
			fmt.Fprintln(out, warnText("no result store configured; set DEMOQA_MONGO_URI"))
			return nil
		}

		ctx := cmd.Context()
		if len(args) == 1 {
			results, summary, err := suite.Reports.RunSummary(ctx, args[0])
			if errors.Is(err, report.ErrRunNotFound) {
				return fmt.Errorf("no results for run %s", args[0])
			}
			if err != nil {
				return err
			}
			if err := printResults(cmd, results); err != nil {
				return err
			}
			status := okText("PASS")
			if !summary.OK() {
				status = failText("FAIL")
			}
			fmt.Fprintf(out, "%s %s\n", status, summary)
			return nil
		}

		results, err := suite.Reports.Recent(ctx, resultsLimit)
		if err != nil {
			return err
		}
		return printResults(cmd, results)
	},
}

func printResults(cmd *cobra.Command, results []*report.Result) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRUN\tTEST\tOUTCOME\tDURATION\tRETRIES")
	for _, r := range results {
		outcome := string(r.Outcome)
		switch r.Outcome {
		case report.OutcomePassed:
			outcome = okText(outcome)
		case report.OutcomeFailed:
			outcome = failText(outcome)
		case report.OutcomeSkipped:
			outcome = warnText(outcome)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.StartedAt.Format(time.DateTime), shortID(r.RunID), r.Identity(), outcome,
			r.Duration.Round(time.Millisecond), r.Retries)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	resultsCmd.Flags().IntVar(&resultsLimit, "limit", 20, "Number of recent results to list")
}
