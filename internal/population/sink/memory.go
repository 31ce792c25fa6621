package sink

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"acspop/internal/population/models"
	"acspop/pkg/platform/sentinel"
	"acspop/pkg/requestcontext"
)

type published struct {
	table models.Table
	pub   Publication
}

// MemorySink keeps published tables in process. It backs tests and the
// serve command when no database is configured.
type MemorySink struct {
	mu     sync.RWMutex
	tables map[string]published
}

func NewMemorySink() *MemorySink {
	return &MemorySink{tables: make(map[string]published)}
}

// Publish swaps in every table under one lock.
func (s *MemorySink) Publish(ctx context.Context, level models.Level, tables []models.Table) error {
	if err := validate(level, tables); err != nil {
		return err
	}
	runID := requestcontext.RunID(ctx)
	now := requestcontext.Now(ctx)

	staged := make([]published, 0, len(tables))
	for _, t := range tables {
		staged = append(staged, published{
			table: t,
			pub: Publication{
				Name:        t.Name,
				Level:       level,
				Rows:        len(t.Rows),
				RunID:       runID,
				PublishedAt: now,
			},
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range staged {
		s.tables[p.table.Name] = p
	}
	return nil
}

func (s *MemorySink) List(_ context.Context) ([]Publication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Publication, 0, len(s.tables))
	for _, p := range s.tables {
		out = append(out, p.pub)
	}
	slices.SortFunc(out, func(a, b Publication) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *MemorySink) Table(_ context.Context, name string) (*models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", name, sentinel.ErrNotFound)
	}
	t := p.table
	return &t, nil
}
