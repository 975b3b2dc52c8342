package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	probeWait     time.Duration
	probeInterval time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the base URL answers",
	Long: `Issue a GET against the configured base URL with transport retries.

With --wait the probe repeats until the site answers or the wait expires.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prober := suite.Prober()
		defer prober.Close()

		ctx := cmd.Context()
		if probeWait > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, probeWait)
			defer cancel()

			result, err := prober.WaitReachable(ctx, probeInterval)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", failText("UNREACHABLE"), prober.URL())
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d in %s\n", okText("OK"), result.URL, result.StatusCode, result.Latency.Round(time.Millisecond))
			return nil
		}

		result, err := prober.Check(ctx)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", failText("UNREACHABLE"), prober.URL())
			return err
		}
		if !result.OK() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d\n", failText("FAIL"), result.URL, result.StatusCode)
			return fmt.Errorf("unexpected status %d", result.StatusCode)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d in %s\n", okText("OK"), result.URL, result.StatusCode, result.Latency.Round(time.Millisecond))
		return nil
	},
}

func init() {
	probeCmd.Flags().DurationVar(&probeWait, "wait", 0, "Keep probing for up to this long")
	probeCmd.Flags().DurationVar(&probeInterval, "interval", 2*time.Second, "Delay between probes with --wait")
}
