package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run has no stored results.
var ErrRunNotFound = errors.New("run not found")

// Service provides result recording and queries.
type Service struct {
	repo Repository
}

// NewService creates a new report service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record stores a result.
func (s *Service) Record(ctx context.Context, result *Result) error {
	if result.RunID == "" {
		return errors.New("result has no run ID")
	}
	if err := s.repo.Insert(ctx, result); err != nil {
		return fmt.Errorf("failed to record %s: %w", result.Identity(), err)
	}
	return nil
}

// RunSummary loads the results of a run and summarizes them.
func (s *Service) RunSummary(ctx context.Context, runID string) ([]*Result, Summary, error) {
	results, err := s.repo.FindByRun(ctx, runID)
	if err != nil {
		return nil, Summary{}, err
	}
	if len(results) == 0 {
		return nil, Summary{}, ErrRunNotFound
	}
	return results, Summarize(results), nil
}

// Recent returns the latest results, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.FindRecent(ctx, limit)
}

// MemoryRepository keeps results in process memory.
// It is used when no database is configured and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	results []*Result
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Insert(ctx context.Context, result *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	m.results = append(m.results, result.Clone())
	return nil
}

func (m *MemoryRepository) FindByRun(ctx context.Context, runID string) ([]*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Result
	for _, r := range m.results {
		if r.RunID == runID {
			out = append(out, r.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

func (m *MemoryRepository) FindRecent(ctx context.Context, limit int) ([]*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Result, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
