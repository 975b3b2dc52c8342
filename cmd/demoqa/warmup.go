package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"demoqa-e2e/application"
	"demoqa-e2e/application/session"
	"demoqa-e2e/core/event"
	"demoqa-e2e/core/eventbus"
)

var (
	warmupHeaded     bool
	warmupScreenshot bool
)

var warmupCmd = &cobra.Command{
	Use:   "warmup [profile]",
	Short: "Launch a browser and load the base URL once",
	Long: `Launch the browser of a profile, install ad blocking and load the base URL
through the resilient navigation path. Useful to check a browser install and
to prime caches before a CI run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profileName := suite.Config.Profile
		if len(args) == 1 {
			profileName = args[0]
		}
		if warmupHeaded {
			suite.Config.Headless = false
		}

		bus := eventbus.New(100, logger)
		var blocked atomic.Int32
		bus.Subscribe(func(event.Event) { blocked.Add(1) }, eventbus.Named("RequestBlocked"))

		coord := suite.NewCoordinator(bus, application.NewDriver)
		defer coord.Stop()

		var title, shot string
		var rendered image.Point
		result := coord.Run(cmd.Context(), application.Scenario{
			Suite:   "warmup",
			Name:    "base url",
			Profile: profileName,
			Warmup:  true,
			Run: func(ctx context.Context, s *session.Session) error {
				if err := s.Browser().Evaluate(ctx, "document.title", &title); err != nil {
					return err
				}
				img, err := s.Screens().CaptureImage(ctx)
				if err != nil {
					return err
				}
				rendered = img.Bounds().Size()
				if warmupScreenshot {
					path, err := s.Screens().CaptureAndSave(ctx, "warmup-"+profileName)
					if err != nil {
						return err
					}
					shot = path
				}
				return nil
			},
		})
		bus.Close()

		out := cmd.OutOrStdout()
		if result.Failed() {
			fmt.Fprintf(out, "%s %s: %s\n", failText("FAIL"), profileName, result.Error)
			if result.Screenshot != "" {
				fmt.Fprintf(out, "  screenshot: %s\n", result.Screenshot)
			}
			return errors.New("warm-up failed")
		}

		fmt.Fprintf(out, "%s %s %q in %s\n", okText("OK"), profileName, title, result.Duration.Round(time.Millisecond))
		fmt.Fprintf(out, "  rendered: %dx%d, retries: %d, blocked requests: %d\n",
			rendered.X, rendered.Y, result.Retries, blocked.Load())
		if shot != "" {
			fmt.Fprintf(out, "  screenshot: %s\n", shot)
		}
		return nil
	},
}

func init() {
	warmupCmd.Flags().BoolVar(&warmupHeaded, "headed", false, "Show the browser window")
	warmupCmd.Flags().BoolVar(&warmupScreenshot, "screenshot", false, "Save a screenshot of the loaded page")
}
