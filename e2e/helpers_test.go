package e2e

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"demoqa-e2e/application"
	"demoqa-e2e/application/session"
	"demoqa-e2e/domain/report"
)

// scenario runs fn on a fresh browser session and fails t with the recorded
// error. fn must report problems through its return value: the session is
// only cleaned up when fn returns.
func scenario(t *testing.T, suiteName string, fn func(ctx context.Context, s *session.Session) error) {
	t.Helper()
	if !*runE2E {
		t.Skip("browser tests disabled; run with -e2e")
	}
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), *testTimeout)
	defer cancel()

	result := coord.Run(ctx, application.Scenario{
		Suite: suiteName,
		Name:  t.Name(),
		Run:   fn,
	})
	switch {
	case result.Failed():
		if result.Screenshot != "" {
			t.Logf("screenshot: %s", result.Screenshot)
		}
		t.Fatalf("%s: %s", result.Identity(), result.Error)
	case result.Outcome == report.OutcomeSkipped:
		t.Skip(result.Error)
	}
	if result.Retries > 0 {
		t.Logf("%d retries absorbed", result.Retries)
	}
}

func expectEqual[T comparable](what string, got, want T) error {
	if got != want {
		return fmt.Errorf("%s = %v, want %v", what, got, want)
	}
	return nil
}

func expectContains(what, got, want string) error {
	if !strings.Contains(got, want) {
		return fmt.Errorf("%s = %q, want it to contain %q", what, got, want)
	}
	return nil
}
