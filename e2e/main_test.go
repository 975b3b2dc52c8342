// Package e2e runs the demoqa.com scenarios against a real browser.
//
// The tests are skipped unless -e2e is given:
//
//	go test ./e2e -e2e -profile firefox-1366x768
package e2e

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"testing"
	"time"

	"demoqa-e2e/application"
	"demoqa-e2e/core/eventbus"
	"demoqa-e2e/domain/testdata"
	"demoqa-e2e/infrastructure/logging"
	"demoqa-e2e/resources"
)

var (
	runE2E      = flag.Bool("e2e", false, "Run the browser tests")
	profileName = flag.String("profile", "", "Browser profile (defaults to the configured one)")
	seed        = flag.Uint64("seed", 0, "Seed of the random test data; 0 picks one")
	probeWait   = flag.Duration("probe-wait", time.Minute, "How long to wait for the site before giving up; 0 skips the probe")
	testTimeout = flag.Duration("test-timeout", 3*time.Minute, "Deadline of one scenario")
)

var (
	suite *application.Suite
	coord *application.Coordinator
	gen   *testdata.Generator
)

func TestMain(m *testing.M) {
	flag.Parse()
	gen = testdata.NewGenerator(*seed)
	if !*runE2E {
		os.Exit(m.Run())
	}
	os.Exit(runSuite(m))
}

func runSuite(m *testing.M) int {
	logger, closeLog, err := logging.Setup(nil)
	if err != nil {
		os.Stderr.WriteString("Failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer closeLog()

	ctx := context.Background()
	suite, err = application.LoadSuite(ctx, resources.Files, logger)
	if err != nil {
		logger.Error("Failed to load suite", "error", err)
		return 1
	}
	defer suite.Close(ctx)

	if *profileName != "" {
		if _, err := suite.Profiles.Get(*profileName); err != nil {
			logger.Error("Unknown profile", "profile", *profileName, "available", suite.Profiles.List())
			return 1
		}
		suite.Config.Profile = *profileName
	}

	if *probeWait > 0 && !waitForSite(ctx, logger) {
		return 1
	}

	bus := eventbus.New(256, logger)
	defer bus.Close()

	coord = suite.NewCoordinator(bus, application.NewDriver)
	logger.Info("Running e2e suite", "run_id", coord.RunID(), "profile", suite.Config.Profile, "seed", gen.Seed())

	code := m.Run()
	coord.Stop()

	path, err := coord.WriteJUnit("demoqa-e2e")
	if err != nil {
		logger.Error("Failed to write JUnit report", "error", err)
	}
	summary := coord.Summary()
	logger.Info("Run finished", "run_id", coord.RunID(), "summary", summary.String(), "junit", path)
	if code == 0 && !summary.OK() {
		code = 1
	}
	return code
}

func waitForSite(ctx context.Context, logger *slog.Logger) bool {
	prober := suite.Prober()
	defer prober.Close()

	ctx, cancel := context.WithTimeout(ctx, *probeWait)
	defer cancel()

	result, err := prober.WaitReachable(ctx, 2*time.Second)
	if err != nil {
		logger.Error("Site is not reachable", "error", err)
		return false
	}
	logger.Info("Site reachable", "url", result.URL, "status", result.StatusCode, "latency", result.Latency)
	return true
}
