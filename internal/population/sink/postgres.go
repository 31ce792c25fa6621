package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"acspop/internal/population/models"
	dErrors "acspop/pkg/domain-errors"
	"acspop/pkg/platform/sentinel"
	txcontext "acspop/pkg/platform/tx"
	"acspop/pkg/requestcontext"
)

const ledgerDDL = `CREATE TABLE IF NOT EXISTS acs_publications (
	name         TEXT PRIMARY KEY,
	level        TEXT NOT NULL,
	columns      JSONB NOT NULL,
	row_count    BIGINT NOT NULL,
	run_id       UUID NOT NULL,
	published_at TIMESTAMPTZ NOT NULL
)`

const upsertLedger = `INSERT INTO acs_publications (name, level, columns, row_count, run_id, published_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE SET
	level = EXCLUDED.level,
	columns = EXCLUDED.columns,
	row_count = EXCLUDED.row_count,
	run_id = EXCLUDED.run_id,
	published_at = EXCLUDED.published_at`

// PostgresSink publishes each table as a database table of the same name
// and records every publish in the acs_publications ledger.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// EnsureSchema creates the publication ledger.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, ledgerDDL); err != nil {
		return fmt.Errorf("create publication ledger: %w", err)
	}
	return nil
}

// Publish drops, recreates and bulk loads every table in one transaction.
// A transaction already carried by ctx is joined and left for the caller to
// commit.
func (s *PostgresSink) Publish(ctx context.Context, level models.Level, tables []models.Table) error {
	if err := validate(level, tables); err != nil {
		return err
	}
	return txcontext.RunInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.publish(ctx, tx, level, tables)
	})
}

func (s *PostgresSink) publish(ctx context.Context, tx *sql.Tx, level models.Level, tables []models.Table) error {
	if _, err := tx.ExecContext(ctx, ledgerDDL); err != nil {
		return fmt.Errorf("create publication ledger: %w", err)
	}
	runID := requestcontext.RunID(ctx)
	now := requestcontext.Now(ctx)

	for _, t := range tables {
		if err := replaceTable(ctx, tx, t); err != nil {
			return err
		}
		columns, err := json.Marshal(t.Columns)
		if err != nil {
			return fmt.Errorf("marshal columns of %s: %w", t.Name, err)
		}
		if _, err := tx.ExecContext(ctx, upsertLedger,
			t.Name, string(level), string(columns), len(t.Rows), runID, now); err != nil {
			return fmt.Errorf("record publication of %s: %w", t.Name, err)
		}
	}
	return nil
}

func replaceTable(ctx context.Context, tx *sql.Tx, t models.Table) error {
	table := pq.QuoteIdentifier(t.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop %s: %w", t.Name, err)
	}

	defs := make([]string, 0, len(t.Columns))
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		typ, err := sqlType(c.Type)
		if err != nil {
			return err
		}
		defs = append(defs, pq.QuoteIdentifier(c.Name)+" "+typ)
		names = append(names, c.Name)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+table+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("create %s: %w", t.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(t.Name, names...))
	if err != nil {
		return fmt.Errorf("prepare copy into %s: %w", t.Name, err)
	}
	defer stmt.Close()
	for i, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("copy row %d into %s: %w", i, t.Name, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flush copy into %s: %w", t.Name, err)
	}
	return nil
}

func sqlType(t models.ColumnType) (string, error) {
	switch t {
	case models.ColumnString:
		return "TEXT", nil
	case models.ColumnInt64:
		return "BIGINT", nil
	case models.ColumnFloat:
		return "DOUBLE PRECISION", nil
	case models.ColumnBool:
		return "BOOLEAN", nil
	}
	return "", dErrors.Newf(dErrors.CodeShape, "unsupported column type %q", t)
}

func (s *PostgresSink) List(ctx context.Context) ([]Publication, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, level, row_count, run_id, published_at FROM acs_publications ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	defer rows.Close()

	var out []Publication
	for rows.Next() {
		var p Publication
		var level string
		if err := rows.Scan(&p.Name, &level, &p.Rows, &p.RunID, &p.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		p.Level = models.Level(level)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	return out, nil
}

// Table reads a published table back using the column declaration recorded
// in the ledger. Rows are ordered by the text columns in declaration order
// under byte-wise collation, which reproduces the published order.
func (s *PostgresSink) Table(ctx context.Context, name string) (*models.Table, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT columns FROM acs_publications WHERE name = $1`, name).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("table %s: %w", name, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find publication %s: %w", name, err)
	}
	t := &models.Table{Name: name}
	if err := json.Unmarshal(raw, &t.Columns); err != nil {
		return nil, fmt.Errorf("decode columns of %s: %w", name, err)
	}

	selects := make([]string, 0, len(t.Columns))
	var order []string
	for _, c := range t.Columns {
		col := pq.QuoteIdentifier(c.Name)
		selects = append(selects, col)
		if c.Type == models.ColumnString {
			order = append(order, col+` COLLATE "C"`)
		}
	}
	query := "SELECT " + strings.Join(selects, ", ") + " FROM " + pq.QuoteIdentifier(name)
	if len(order) > 0 {
		query += " ORDER BY " + strings.Join(order, ", ")
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer rows.Close()
	for rows.Next() {
		dest := scanTargets(t.Columns)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		t.Rows = append(t.Rows, cellValues(dest))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return t, nil
}

func scanTargets(cols []models.Column) []any {
	dest := make([]any, len(cols))
	for i, c := range cols {
		switch c.Type {
		case models.ColumnInt64:
			dest[i] = new(sql.NullInt64)
		case models.ColumnFloat:
			dest[i] = new(sql.NullFloat64)
		case models.ColumnBool:
			dest[i] = new(sql.NullBool)
		default:
			dest[i] = new(sql.NullString)
		}
	}
	return dest
}

func cellValues(dest []any) []any {
	cells := make([]any, len(dest))
	for i, d := range dest {
		switch v := d.(type) {
		case *sql.NullInt64:
			if v.Valid {
				cells[i] = v.Int64
			}
		case *sql.NullFloat64:
			if v.Valid {
				cells[i] = v.Float64
			}
		case *sql.NullBool:
			if v.Valid {
				cells[i] = v.Bool
			}
		case *sql.NullString:
			if v.Valid {
				cells[i] = v.String
			}
		}
	}
	return cells
}
