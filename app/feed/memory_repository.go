package feed

import (
	"context"
	"slices"
	"sync"
)

var _ UpdateRepository = (*MemoryRepository)(nil)

// MemoryRepository keeps update records in memory and answers queries with
// Criteria.Matches, SortRecords and Criteria.Window.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []UpdateRecord
	err     error
}

func NewMemoryRepository(records ...UpdateRecord) *MemoryRepository {
	return &MemoryRepository{records: slices.Clone(records)}
}

func (m *MemoryRepository) Add(records ...UpdateRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
}

// SetError makes every subsequent call fail with err; nil clears it.
func (m *MemoryRepository) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryRepository) Query(ctx context.Context, criteria Criteria) ([]UpdateRecord, error) {
	matched, err := m.match(ctx, criteria)
	if err != nil {
		return nil, err
	}

	return criteria.Window(matched), nil
}

func (m *MemoryRepository) Count(ctx context.Context, criteria Criteria) (int, error) {
	matched, err := m.match(ctx, criteria)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (m *MemoryRepository) match(ctx context.Context, criteria Criteria) ([]UpdateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, m.err
	}

	matched := make([]UpdateRecord, 0, len(m.records))
	for _, r := range m.records {
		if criteria.Matches(r) {
			matched = append(matched, r)
		}
	}

	SortRecords(matched)

	return matched, nil
}
