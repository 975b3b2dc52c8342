package pages

import (
	"context"
	"testing"
	"time"

	"demoqa-e2e/application/session"
	"demoqa-e2e/domain/retry"
	"demoqa-e2e/infrastructure/browser/browsertest"
)

func fastPolicy() retry.Policy {
	s := retry.Schedule{MaxAttempts: 2, BaseTimeout: 20 * time.Millisecond, FallbackTimeout: 10 * time.Millisecond}
	return retry.Policy{Navigation: s, Element: s, Click: s, Fill: s}
}

func fastOptions() *Options {
	return &Options{
		DialogTimeout:      time.Second,
		TimerDialogTimeout: time.Second,
		OutputTimeout:      20 * time.Millisecond,
		ModalTimeout:       20 * time.Millisecond,
		CloseTimeout:       20 * time.Millisecond,
		TooltipTimeout:     20 * time.Millisecond,
	}
}

// startSession returns a ready session over a fresh fake driver.
func startSession(t *testing.T) (*session.Session, *browsertest.FakeDriver) {
	t.Helper()
	driver := browsertest.New("")
	s := session.New(&session.Config{
		ID:            "page-test",
		Driver:        driver,
		Policy:        fastPolicy(),
		BaseURL:       "https://demoqa.com",
		ScreenshotDir: t.TempDir(),
		Sleep:         func(ctx context.Context, d time.Duration) error { return ctx.Err() },
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s, driver
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
