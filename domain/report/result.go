// Package report defines the test Result entity and run summaries.
package report

import (
	"fmt"
	"time"
)

// Outcome is the verdict of one test.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Result is the recorded outcome of one test in one run.
type Result struct {
	// ID is the unique identifier (MongoDB ObjectID when persisted)
	ID string

	// RunID groups the results of one suite invocation
	RunID string

	// Suite is the page or feature under test, e.g. "alerts"
	Suite string

	// Name is the test name
	Name string

	// Profile is the browser profile the test ran on
	Profile string

	Outcome  Outcome
	Duration time.Duration

	// Retries counts the action retries absorbed during the test
	Retries int

	// Error is the final error text of a failed test
	Error string

	// Screenshot is the path of the failure screenshot, if any
	Screenshot string

	StartedAt time.Time
}

// Identity returns "suite/name [profile]".
func (r *Result) Identity() string {
	return fmt.Sprintf("%s/%s [%s]", r.Suite, r.Name, r.Profile)
}

// Failed reports whether the test failed.
func (r *Result) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// Clone creates a copy of the result.
func (r *Result) Clone() *Result {
	c := *r
	return &c
}

// Summary aggregates the results of a run.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Retries  int
	Duration time.Duration
}

// Summarize counts results by outcome.
func Summarize(results []*Result) Summary {
	var s Summary
	for _, r := range results {
		s.Total++
		s.Retries += r.Retries
		s.Duration += r.Duration
		switch r.Outcome {
		case OutcomePassed:
			s.Passed++
		case OutcomeFailed:
			s.Failed++
		case OutcomeSkipped:
			s.Skipped++
		}
	}
	return s
}

// OK reports whether no test failed.
func (s Summary) OK() bool {
	return s.Failed == 0
}

func (s Summary) String() string {
	return fmt.Sprintf("%d tests: %d passed, %d failed, %d skipped, %d retries in %s",
		s.Total, s.Passed, s.Failed, s.Skipped, s.Retries, s.Duration.Round(time.Millisecond))
}
