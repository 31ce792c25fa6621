// Package aggregate implements the relational primitives every breakdown
// relation is built from: derived sum rows, percentage shares, and the
// restrict/project/relabel/regroup helpers around them.
//
// All functions return new relations; input rows are never modified.
package aggregate

import (
	"slices"

	"acspop/internal/population/models"
	dErrors "acspop/pkg/domain-errors"
)

// cellKey identifies a row by geography and every dimension value.
type cellKey struct {
	geo  models.Geography
	race models.Category
	sex  string
	age  string
}

func keyOf(row models.Row) cellKey {
	return cellKey{geo: row.Geo, race: row.Race, sex: row.Sex, age: row.Age}
}

// groupKeyOf identifies the co-group of row along dim: geography plus every
// other dimension.
func groupKeyOf(row models.Row, dim models.Dimension) cellKey {
	return keyOf(row.With(dim, ""))
}

// AddDerivedSum appends one row labeled label along dim for every
// combination of geography and the remaining dimensions. Its population is
// the sum over rows of that combination whose dim value is in sources, or
// over all rows of the combination when sources is empty. Combinations with
// no matching rows get no derived row.
//
// The label must not already be present along dim; re-deriving a label
// would double count it.
func AddDerivedSum(rel models.Relation, dim models.Dimension, label string, sources ...string) (models.Relation, error) {
	if !rel.HasDim(dim) {
		return models.Relation{}, dErrors.Newf(dErrors.CodePrecondition, "relation %s has no dimension %s", rel.Name, dim)
	}
	for _, row := range rel.Rows {
		if row.Get(dim) == label {
			return models.Relation{}, dErrors.Newf(dErrors.CodePrecondition,
				"relation %s already has %s=%s rows", rel.Name, dim, label)
		}
	}

	include := func(string) bool { return true }
	if len(sources) > 0 {
		set := make(map[string]struct{}, len(sources))
		for _, s := range sources {
			set[s] = struct{}{}
		}
		include = func(v string) bool {
			_, ok := set[v]
			return ok
		}
	}

	var order []cellKey
	derived := make(map[cellKey]models.Row)
	for _, row := range rel.Rows {
		if !include(row.Get(dim)) {
			continue
		}
		k := groupKeyOf(row, dim)
		d, ok := derived[k]
		if !ok {
			d = row.With(dim, label)
			d.Population = 0
			d.PopulationPct = nil
			order = append(order, k)
		}
		d.Population += row.Population
		derived[k] = d
	}

	rows := make([]models.Row, 0, len(rel.Rows)+len(order))
	rows = append(rows, rel.Rows...)
	for _, k := range order {
		rows = append(rows, derived[k])
	}
	return rel.WithRows(rows), nil
}

// PercentShare sets each row's PopulationPct to its population divided by
// the population of the row in the same co-group whose dim equals
// denominator. Every co-group must contain exactly one denominator row. A
// zero denominator yields a zero share.
func PercentShare(rel models.Relation, dim models.Dimension, denominator string) (models.Relation, error) {
	if !rel.HasDim(dim) {
		return models.Relation{}, dErrors.Newf(dErrors.CodePrecondition, "relation %s has no dimension %s", rel.Name, dim)
	}

	totals := make(map[cellKey]int64)
	for _, row := range rel.Rows {
		if row.Get(dim) != denominator {
			continue
		}
		k := groupKeyOf(row, dim)
		if _, dup := totals[k]; dup {
			return models.Relation{}, dErrors.Newf(dErrors.CodePrecondition,
				"relation %s has duplicate %s=%s rows for geography %s", rel.Name, dim, denominator, geoID(row.Geo))
		}
		totals[k] = row.Population
	}

	rows := make([]models.Row, 0, len(rel.Rows))
	for _, row := range rel.Rows {
		total, ok := totals[groupKeyOf(row, dim)]
		if !ok {
			return models.Relation{}, dErrors.Newf(dErrors.CodePrecondition,
				"relation %s has no %s=%s row for geography %s", rel.Name, dim, denominator, geoID(row.Geo))
		}
		share := 0.0
		if total != 0 {
			share = float64(row.Population) / float64(total)
		}
		row.PopulationPct = &share
		rows = append(rows, row)
	}
	return rel.WithRows(rows), nil
}

func geoID(g models.Geography) string {
	if g.CountyFIPS != "" {
		return g.CountyFIPS
	}
	return g.StateFIPS
}

// Filter keeps the rows matching pred.
func Filter(rel models.Relation, pred func(models.Row) bool) models.Relation {
	rows := make([]models.Row, 0, len(rel.Rows))
	for _, row := range rel.Rows {
		if pred(row) {
			rows = append(rows, row)
		}
	}
	return rel.WithRows(rows)
}

// Where is a Filter predicate matching rows whose dim equals value.
func Where(dim models.Dimension, value string) func(models.Row) bool {
	return func(row models.Row) bool {
		return row.Get(dim) == value
	}
}

// Project keeps only dims, clearing the values of every other dimension
// and any percentage share. Rows that collapse onto the same key are not
// merged; follow with Regroup for that.
func Project(rel models.Relation, name string, dims ...models.Dimension) models.Relation {
	keep := make(map[models.Dimension]bool, len(dims))
	for _, d := range dims {
		keep[d] = true
	}
	rows := make([]models.Row, 0, len(rel.Rows))
	for _, row := range rel.Rows {
		for _, d := range []models.Dimension{models.DimRace, models.DimSex, models.DimAge} {
			if !keep[d] {
				row = row.With(d, "")
			}
		}
		row.PopulationPct = nil
		rows = append(rows, row)
	}
	return models.Relation{Name: name, Level: rel.Level, Dims: slices.Clone(dims), Rows: rows}
}

// Relabel maps each row's dim value through fn. Rows for which fn reports
// no mapping are dropped.
func Relabel(rel models.Relation, dim models.Dimension, fn func(string) (string, bool)) models.Relation {
	rows := make([]models.Row, 0, len(rel.Rows))
	for _, row := range rel.Rows {
		v, ok := fn(row.Get(dim))
		if !ok {
			continue
		}
		rows = append(rows, row.With(dim, v))
	}
	return rel.WithRows(rows)
}

// Regroup sums the population of rows sharing geography and dimension
// values, keeping first-seen order. Percentage shares are dropped.
func Regroup(rel models.Relation) models.Relation {
	var order []cellKey
	sums := make(map[cellKey]models.Row)
	for _, row := range rel.Rows {
		k := keyOf(row)
		s, ok := sums[k]
		if !ok {
			s = row
			s.Population = 0
			s.PopulationPct = nil
			order = append(order, k)
		}
		s.Population += row.Population
		sums[k] = s
	}
	rows := make([]models.Row, 0, len(order))
	for _, k := range order {
		rows = append(rows, sums[k])
	}
	return rel.WithRows(rows)
}

// Concat appends the rows of rels to base. All relations must share base's
// dimensions.
func Concat(base models.Relation, rels ...models.Relation) (models.Relation, error) {
	rows := slices.Clone(base.Rows)
	for _, r := range rels {
		if !slices.Equal(r.Dims, base.Dims) {
			return models.Relation{}, dErrors.Newf(dErrors.CodePrecondition,
				"cannot concatenate %s %v onto %s %v", r.Name, r.Dims, base.Name, base.Dims)
		}
		rows = append(rows, r.Rows...)
	}
	return base.WithRows(rows), nil
}

// Dedupe drops rows whose geography and dimension values repeat an earlier
// row.
func Dedupe(rel models.Relation) models.Relation {
	seen := make(map[cellKey]struct{}, len(rel.Rows))
	rows := make([]models.Row, 0, len(rel.Rows))
	for _, row := range rel.Rows {
		k := keyOf(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, row)
	}
	return rel.WithRows(rows)
}

// Sort orders rows by geography, then by the relation's dimensions in
// declaration order. Dimension values compare as strings.
func Sort(rel models.Relation) models.Relation {
	rows := slices.Clone(rel.Rows)
	slices.SortStableFunc(rows, func(a, b models.Row) int {
		if a.Geo.Less(b.Geo) {
			return -1
		}
		if b.Geo.Less(a.Geo) {
			return 1
		}
		for _, d := range rel.Dims {
			av, bv := a.Get(d), b.Get(d)
			if av < bv {
				return -1
			}
			if av > bv {
				return 1
			}
		}
		return 0
	})
	return rel.WithRows(rows)
}
