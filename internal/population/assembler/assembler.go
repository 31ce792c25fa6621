// Package assembler builds the canonical breakdown relations of one
// geography level from standardized raw rows.
package assembler

import (
	"acspop/internal/population/age"
	"acspop/internal/population/aggregate"
	"acspop/internal/population/models"
	"acspop/internal/population/race"
	dErrors "acspop/pkg/domain-errors"
)

// Inputs are the raw rows of every concept a level run reads.
type Inputs struct {
	HispanicByRace []models.RawRow
	// SexByAge is keyed by concept name.
	SexByAge map[string][]models.RawRow
}

// Relations are the canonical relations of one level.
type Relations struct {
	Level        models.Level
	ByRace       models.Relation
	BySexAgeRace models.Relation
	BySexAge     models.Relation
	ByAge        models.Relation
	BySex        models.Relation
}

// All lists the relations in publication order.
func (r Relations) All() []models.Relation {
	return []models.Relation{r.ByRace, r.BySexAgeRace, r.BySexAge, r.ByAge, r.BySex}
}

// Assembler builds Relations for one geography level.
type Assembler struct {
	level models.Level
}

func New(level models.Level) (*Assembler, error) {
	if !level.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid geography level %q", level)
	}
	return &Assembler{level: level}, nil
}

func (a *Assembler) Level() models.Level {
	return a.level
}

// Build produces every canonical relation or fails as a whole.
func (a *Assembler) Build(in Inputs) (*Relations, error) {
	byRace, err := race.AllRaces(in.HispanicByRace, a.level)
	if err != nil {
		return nil, err
	}
	bySexAgeRace, err := a.BySexAgeRace(in.SexByAge)
	if err != nil {
		return nil, err
	}
	bySexAge, err := a.BySexAge(bySexAgeRace)
	if err != nil {
		return nil, err
	}
	byAge, err := a.ByAge(bySexAge)
	if err != nil {
		return nil, err
	}
	bySex, err := a.BySex(bySexAgeRace)
	if err != nil {
		return nil, err
	}
	return &Relations{
		Level:        a.level,
		ByRace:       byRace,
		BySexAgeRace: bySexAgeRace,
		BySexAge:     bySexAge,
		ByAge:        byAge,
		BySex:        bySex,
	}, nil
}

// BySexAgeRace concatenates the ten sex-by-age concepts, stamping each row
// with its concept's race, and derives "Total" along age and then sex within
// each (geography, race) group.
func (a *Assembler) BySexAgeRace(sexByAge map[string][]models.RawRow) (models.Relation, error) {
	rel := models.Relation{
		Name:  models.BySexAgeRaceName(a.level),
		Level: a.level,
		Dims:  []models.Dimension{models.DimRace, models.DimSex, models.DimAge},
	}
	for _, concept := range models.SexByAgeConcepts() {
		raw, ok := sexByAge[concept.Name]
		if !ok {
			return models.Relation{}, dErrors.Newf(dErrors.CodeShape, "missing raw rows for concept %q", concept.Name)
		}
		for _, r := range raw {
			rel.Rows = append(rel.Rows, models.Row{
				Geo:        r.Geo,
				Race:       concept.Race,
				Sex:        r.Sex,
				Age:        age.RenameBracket(r.Age),
				Population: r.Population,
			})
		}
	}

	rel, err := aggregate.AddDerivedSum(rel, models.DimAge, models.TotalValue)
	if err != nil {
		return models.Relation{}, err
	}
	rel, err = aggregate.AddDerivedSum(rel, models.DimSex, models.TotalValue)
	if err != nil {
		return models.Relation{}, err
	}
	return aggregate.Sort(rel), nil
}

// BySexAge restricts bySexAgeRace to race TOTAL and re-buckets age into
// decades. State level also re-buckets into eligibility windows and keeps
// both bucket sets.
func (a *Assembler) BySexAge(bySexAgeRace models.Relation) (models.Relation, error) {
	total := aggregate.Project(
		aggregate.Filter(bySexAgeRace, aggregate.Where(models.DimRace, string(models.RaceTotal))),
		models.BySexAgeName(a.level), models.DimSex, models.DimAge)

	rel := aggregate.Regroup(aggregate.Relabel(total, models.DimAge, age.Decade))
	if a.level == models.LevelState {
		eligibility := aggregate.Regroup(aggregate.Relabel(total, models.DimAge, age.Eligibility))
		var err error
		if rel, err = aggregate.Concat(rel, eligibility); err != nil {
			return models.Relation{}, err
		}
		rel = aggregate.Dedupe(rel)
	}
	return aggregate.Sort(rel), nil
}

// ByAge restricts bySexAge to sex "Total" with each bucket's share of the
// age "Total" row.
func (a *Assembler) ByAge(bySexAge models.Relation) (models.Relation, error) {
	rel := aggregate.Project(
		aggregate.Filter(bySexAge, aggregate.Where(models.DimSex, models.TotalValue)),
		models.ByAgeName(a.level), models.DimAge)
	rel, err := aggregate.PercentShare(rel, models.DimAge, models.TotalValue)
	if err != nil {
		return models.Relation{}, err
	}
	return aggregate.Sort(rel), nil
}

// BySex restricts bySexAgeRace to race TOTAL and age "Total" with each
// sex's share of the sex "Total" row.
func (a *Assembler) BySex(bySexAgeRace models.Relation) (models.Relation, error) {
	rel := aggregate.Filter(bySexAgeRace, func(r models.Row) bool {
		return r.Race == models.RaceTotal && r.Age == models.TotalValue
	})
	rel = aggregate.Project(rel, models.BySexName(a.level), models.DimSex)
	rel, err := aggregate.PercentShare(rel, models.DimSex, models.TotalValue)
	if err != nil {
		return models.Relation{}, err
	}
	return aggregate.Sort(rel), nil
}
