package report

import "context"

// Repository defines the interface for result persistence operations.
type Repository interface {
	// Insert stores a result and assigns its ID.
	Insert(ctx context.Context, result *Result) error

	// FindByRun retrieves the results of one run in start order.
	FindByRun(ctx context.Context, runID string) ([]*Result, error)

	// FindRecent retrieves the most recent results, newest first.
	FindRecent(ctx context.Context, limit int) ([]*Result, error)
}
