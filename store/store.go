// Package store persists comparison reports so runs can be looked up and compared over time
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aouyang1/go-forecast-eval/compare"
)

var (
	ErrMissingRunID = errors.New("report run id required")
	ErrNilReport    = errors.New("nil report")
)

// Store saves comparison reports keyed by run id
type Store interface {
	Put(ctx context.Context, report *compare.Report) error

	// Get returns the report of a run. found is false when the run does not exist.
	Get(ctx context.Context, runID string) (report *compare.Report, found bool, err error)

	// Latest returns up to n reports, newest first
	Latest(ctx context.Context, n int) ([]*compare.Report, error)

	Close() error
}

func checkReport(report *compare.Report) error {
	if report == nil {
		return ErrNilReport
	}
	if report.RunID == "" {
		return ErrMissingRunID
	}
	return nil
}

// MemoryStore keeps reports in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*compare.Report
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]*compare.Report),
	}
}

func (m *MemoryStore) Put(ctx context.Context, report *compare.Report) error {
	if err := checkReport(report); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[report.RunID] = report
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, runID string) (*compare.Report, bool, error) {
	if runID == "" {
		return nil, false, ErrMissingRunID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, exists := m.reports[runID]
	return report, exists, nil
}

func (m *MemoryStore) Latest(ctx context.Context, n int) ([]*compare.Report, error) {
	if n <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	reports := make([]*compare.Report, 0, len(m.reports))
	for _, r := range m.reports {
		reports = append(reports, r)
	}
	m.mu.RUnlock()

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].RunID > reports[j].RunID
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	if len(reports) > n {
		reports = reports[:n]
	}
	return reports, nil
}

// Len returns the number of stored reports
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reports)
}

func (m *MemoryStore) Close() error {
	return nil
}
