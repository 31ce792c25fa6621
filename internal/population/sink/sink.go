// Package sink publishes standardized tables and serves them back.
//
// A Publish call carries every table of one geography level and replaces
// them all or none. Tables of other levels are left in place.
package sink

//go:generate mockgen -source=sink.go -destination=mocks/mocks.go -package=mocks Sink,Reader

import (
	"context"
	"time"

	"github.com/google/uuid"

	"acspop/internal/population/models"
	dErrors "acspop/pkg/domain-errors"
)

// Sink receives the tables of one level.
type Sink interface {
	Publish(ctx context.Context, level models.Level, tables []models.Table) error
}

// Reader serves what a Sink published. Table returns an error wrapping
// sentinel.ErrNotFound for names never published.
type Reader interface {
	List(ctx context.Context) ([]Publication, error)
	Table(ctx context.Context, name string) (*models.Table, error)
}

// Publication describes the latest publish of one table.
type Publication struct {
	Name        string       `json:"name"`
	Level       models.Level `json:"level"`
	Rows        int          `json:"rows"`
	RunID       uuid.UUID    `json:"run_id"`
	PublishedAt time.Time    `json:"published_at"`
}

// validate rejects batches a sink cannot publish as a whole.
func validate(level models.Level, tables []models.Table) error {
	if !level.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid geography level %q", level)
	}
	if len(tables) == 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "no tables to publish for level %s", level)
	}
	seen := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		if t.Name == "" {
			return dErrors.New(dErrors.CodeShape, "table has no name")
		}
		if _, dup := seen[t.Name]; dup {
			return dErrors.Newf(dErrors.CodeShape, "table %s appears twice in one publish", t.Name)
		}
		seen[t.Name] = struct{}{}
		if len(t.Columns) == 0 {
			return dErrors.Newf(dErrors.CodeShape, "table %s declares no columns", t.Name)
		}
		for i, row := range t.Rows {
			if len(row) != len(t.Columns) {
				return dErrors.Newf(dErrors.CodeShape, "table %s row %d has %d cells for %d columns",
					t.Name, i, len(row), len(t.Columns))
			}
		}
	}
	return nil
}
