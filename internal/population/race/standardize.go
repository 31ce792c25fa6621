// Package race standardizes the HISPANIC OR LATINO ORIGIN BY RACE concept
// into canonical race categories.
//
// Two partitions are built and kept apart:
//
//   - Inclusive: race categories that may contain Hispanic individuals,
//     plus HISP/NH rows for the Hispanic-origin axis. Summing all of its
//     rows counts people twice.
//   - Exclusive: every person is in exactly one of the _NH categories or
//     HISP. Summing all of its rows gives the total population.
//
// AllRaces merges both into the published by-race relation.
package race

import (
	"acspop/internal/population/aggregate"
	"acspop/internal/population/models"
	dErrors "acspop/pkg/domain-errors"
)

type geoCategory struct {
	geo models.Geography
	cat models.Category
}

// summer groups populations by (geography, category) in first-seen order.
type summer struct {
	order []geoCategory
	sums  map[geoCategory]int64
}

func newSummer() *summer {
	return &summer{sums: make(map[geoCategory]int64)}
}

func (s *summer) add(geo models.Geography, cat models.Category, population int64) {
	k := geoCategory{geo: geo, cat: cat}
	if _, ok := s.sums[k]; !ok {
		s.order = append(s.order, k)
	}
	s.sums[k] += population
}

func (s *summer) rows() []models.Row {
	rows := make([]models.Row, 0, len(s.order))
	for _, k := range s.order {
		rows = append(rows, models.Row{Geo: k.geo, Race: k.cat, Population: s.sums[k]})
	}
	return rows
}

func raceRelation(name string, level models.Level, rows []models.Row) models.Relation {
	return models.Relation{Name: name, Level: level, Dims: []models.Dimension{models.DimRace}, Rows: rows}
}

// Inclusive builds the Hispanic-inclusive partition: HISP/NH rows grouped by
// Hispanic origin, followed by race rows grouped by race string regardless
// of Hispanic origin.
func Inclusive(raw []models.RawRow, level models.Level) (models.Relation, error) {
	byHispanic := newSummer()
	byRace := newSummer()
	for _, r := range raw {
		hisp, err := models.IsHispanic(r.Hispanic)
		if err != nil {
			return models.Relation{}, err
		}
		if hisp {
			byHispanic.add(r.Geo, models.RaceHisp, r.Population)
		} else {
			byHispanic.add(r.Geo, models.RaceNH, r.Population)
		}

		cat, err := models.InclusiveCategory(r.Race)
		if err != nil {
			return models.Relation{}, err
		}
		byRace.add(r.Geo, cat, r.Population)
	}
	rows := append(byHispanic.rows(), byRace.rows()...)
	return raceRelation("inclusive", level, rows), nil
}

// Exclusive builds the mutually exclusive partition: Hispanic rows become
// HISP, every other row its race's _NH category.
func Exclusive(raw []models.RawRow, level models.Level) (models.Relation, error) {
	sums := newSummer()
	for _, r := range raw {
		hisp, err := models.IsHispanic(r.Hispanic)
		if err != nil {
			return models.Relation{}, err
		}
		if hisp {
			// The race string still has to be a known one.
			if _, err := models.ExclusiveCategory(r.Race); err != nil {
				return models.Relation{}, err
			}
			sums.add(r.Geo, models.RaceHisp, r.Population)
			continue
		}
		cat, err := models.ExclusiveCategory(r.Race)
		if err != nil {
			return models.Relation{}, err
		}
		sums.add(r.Geo, cat, r.Population)
	}
	return raceRelation("exclusive", level, sums.rows()), nil
}

func categoryStrings(cats ...models.Category) []string {
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, string(c))
	}
	return out
}

// AllRaces merges both partitions into the by-race relation, adds TOTAL and
// the MULTI_OR_OTHER_STANDARD composites, and attaches each row's share of
// TOTAL. Rows are sorted by geography and category.
func AllRaces(raw []models.RawRow, level models.Level) (models.Relation, error) {
	inclusive, err := Inclusive(raw, level)
	if err != nil {
		return models.Relation{}, err
	}
	exclusive, err := Exclusive(raw, level)
	if err != nil {
		return models.Relation{}, err
	}

	// HISP is in both partitions; keep the inclusive copy.
	exclusive = aggregate.Filter(exclusive, func(r models.Row) bool {
		return r.Race != models.RaceHisp
	})
	all, err := aggregate.Concat(inclusive, exclusive)
	if err != nil {
		return models.Relation{}, err
	}
	all.Name = models.ByRaceName(level)

	derived := []struct {
		label   models.Category
		sources []models.Category
	}{
		{models.RaceTotal, models.InclusiveRaceCategories()},
		{models.RaceMultiOrOtherStandardNH, []models.Category{models.RaceMultiNH, models.RaceOtherStandardNH}},
		{models.RaceMultiOrOtherStandard, []models.Category{models.RaceMulti, models.RaceOtherStandard}},
	}
	for _, d := range derived {
		all, err = aggregate.AddDerivedSum(all, models.DimRace, string(d.label), categoryStrings(d.sources...)...)
		if err != nil {
			return models.Relation{}, dErrors.Wrap(err, dErrors.CodePrecondition, "derive "+string(d.label))
		}
	}

	all, err = aggregate.PercentShare(all, models.DimRace, string(models.RaceTotal))
	if err != nil {
		return models.Relation{}, err
	}
	return aggregate.Sort(all), nil
}
