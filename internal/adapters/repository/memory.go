package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/mmo/internal/domain/model"
	"github.com/okian/mmo/pkg/metrics"
)

// MemoryStore keeps runs in process memory. It is the default when no
// history DSN is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]model.Run
	order   []string // oldest first
	maxRuns int
}

// NewMemoryStore creates an empty in-memory history.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := applyOptions(opts)
	return &MemoryStore{runs: make(map[string]model.Run), maxRuns: o.maxRuns}
}

func (s *MemoryStore) Save(ctx context.Context, run model.Run) error {
	start := time.Now()
	defer func() {
		metrics.RecordHistoryLatency("save", float64(time.Since(start).Milliseconds()))
	}()
	if run.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRun)
	}

	s.mu.Lock()
	if _, exists := s.runs[run.ID]; exists {
		s.removeOrder(run.ID)
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	for s.maxRuns > 0 && len(s.order) > s.maxRuns {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	n := len(s.runs)
	s.mu.Unlock()

	metrics.UpdateHistoryRuns(n)
	return nil
}

// Must be called with s.mu held.
func (s *MemoryStore) removeOrder(id string) {
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (model.Run, error) {
	start := time.Now()
	defer func() {
		metrics.RecordHistoryLatency("get", float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]model.RunSummary, error) {
	start := time.Now()
	defer func() {
		metrics.RecordHistoryLatency("list", float64(time.Since(start).Milliseconds()))
	}()
	if limit <= 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	s.mu.RLock()
	out := make([]model.RunSummary, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.Summary())
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func sortNewestFirst(runs []model.RunSummary) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}
