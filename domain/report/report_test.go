package report

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newResult(run, name string, outcome Outcome, start time.Time) *Result {
	return &Result{
		RunID:     run,
		Suite:     "alerts",
		Name:      name,
		Profile:   "chromium-desktop",
		Outcome:   outcome,
		Duration:  time.Second,
		StartedAt: start,
	}
}

func TestResult_Identity(t *testing.T) {
	r := newResult("run", "confirm accept", OutcomePassed, time.Time{})
	if got := r.Identity(); got != "alerts/confirm accept [chromium-desktop]" {
		t.Errorf("Identity() = %q", got)
	}
	if r.Failed() {
		t.Error("passed result should not be failed")
	}
}

func TestSummarize(t *testing.T) {
	results := []*Result{
		newResult("r", "a", OutcomePassed, time.Time{}),
		newResult("r", "b", OutcomeFailed, time.Time{}),
		newResult("r", "c", OutcomeSkipped, time.Time{}),
		newResult("r", "d", OutcomePassed, time.Time{}),
	}
	results[1].Retries = 3

	s := Summarize(results)
	if s.Total != 4 || s.Passed != 2 || s.Failed != 1 || s.Skipped != 1 {
		t.Errorf("Summarize() = %+v", s)
	}
	if s.Retries != 3 {
		t.Errorf("Retries = %d, want 3", s.Retries)
	}
	if s.Duration != 4*time.Second {
		t.Errorf("Duration = %v, want 4s", s.Duration)
	}
	if s.OK() {
		t.Error("summary with a failure should not be OK")
	}
	if Summarize(nil) != (Summary{}) {
		t.Error("empty summary should be zero")
	}
}

func TestService_RecordAndSummary(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	second := newResult("run-1", "second", OutcomeFailed, base.Add(time.Minute))
	first := newResult("run-1", "first", OutcomePassed, base)
	other := newResult("run-2", "other", OutcomePassed, base.Add(time.Hour))

	for _, r := range []*Result{second, first, other} {
		if err := svc.Record(ctx, r); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if r.ID == "" {
			t.Error("Record() should assign an ID")
		}
	}

	results, summary, err := svc.RunSummary(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunSummary() error = %v", err)
	}
	if len(results) != 2 || results[0].Name != "first" || results[1].Name != "second" {
		t.Errorf("RunSummary() order = %v", results)
	}
	if summary.Failed != 1 || summary.Passed != 1 {
		t.Errorf("summary = %+v", summary)
	}

	if _, _, err := svc.RunSummary(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("RunSummary(missing) error = %v, want ErrRunNotFound", err)
	}

	recent, err := svc.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 || recent[0].Name != "other" || recent[1].Name != "second" {
		t.Errorf("Recent() = %v", recent)
	}
}

func TestService_RecordRequiresRunID(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	if err := svc.Record(context.Background(), &Result{Name: "x"}); err == nil {
		t.Error("Record() without run ID should fail")
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	r := newResult("run", "a", OutcomePassed, time.Time{})
	_ = repo.Insert(ctx, r)

	r.Outcome = OutcomeFailed
	got, _ := repo.FindByRun(ctx, "run")
	if got[0].Outcome != OutcomePassed {
		t.Error("stored result should not alias the caller's value")
	}
}
