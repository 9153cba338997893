package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/JonMunkholm/billing/internal/billing"
)

// Memory keeps records in a slice guarded by a mutex.
type Memory struct {
	mu      sync.RWMutex
	records []billing.Record
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) indexOf(id string) int {
	return slices.IndexFunc(m.records, func(r billing.Record) bool { return r.ID == id })
}

func (m *Memory) Create(_ context.Context, rec billing.Record) (billing.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(rec.ID) >= 0 {
		return billing.Record{}, ErrConflict
	}
	m.records = append(m.records, clone(rec))
	return clone(rec), nil
}

func (m *Memory) Get(_ context.Context, id string) (billing.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(id)
	if i < 0 {
		return billing.Record{}, billing.ErrNotFound
	}
	return clone(m.records[i]), nil
}

func (m *Memory) Update(_ context.Context, rec billing.Record) (billing.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(rec.ID)
	if i < 0 {
		return billing.Record{}, billing.ErrNotFound
	}
	rec.CreatedAt = m.records[i].CreatedAt
	m.records[i] = clone(rec)
	return clone(rec), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return billing.ErrNotFound
	}
	m.records = slices.Delete(m.records, i, i+1)
	return nil
}

func (m *Memory) List(_ context.Context, f billing.Filter) ([]billing.Record, error) {
	m.mu.RLock()
	out := make([]billing.Record, 0, len(m.records))
	for _, r := range m.records {
		if f.Match(r) {
			out = append(out, clone(r))
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// clone copies the pointer and slice fields so callers cannot mutate
// stored state.
func clone(r billing.Record) billing.Record {
	if r.AttendanceSummary != nil {
		a := *r.AttendanceSummary
		r.AttendanceSummary = &a
	}
	r.Details = slices.Clone(r.Details)
	if cb, ok := r.Terms.(billing.CountBased); ok && cb.AchievedCountTotal != nil {
		n := *cb.AchievedCountTotal
		cb.AchievedCountTotal = &n
		r.Terms = cb
	}
	return r
}
