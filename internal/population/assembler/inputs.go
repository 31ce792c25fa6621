package assembler

import (
	"context"
	"fmt"

	"acspop/internal/population/census"
	"acspop/internal/population/models"
)

// LoadInputs reads and standardizes every concept of a level. The first
// failing concept aborts the load.
func LoadInputs(ctx context.Context, src census.Source, resolver census.Resolver, level models.Level) (Inputs, error) {
	hispanicByRace, err := loadConcept(ctx, src, resolver, models.HispanicByRace, level, census.FieldHispanic, census.FieldRace)
	if err != nil {
		return Inputs{}, err
	}

	sexByAge := make(map[string][]models.RawRow)
	for _, concept := range models.SexByAgeConcepts() {
		rows, err := loadConcept(ctx, src, resolver, concept, level, census.FieldSex, census.FieldAge)
		if err != nil {
			return Inputs{}, err
		}
		sexByAge[concept.Name] = rows
	}
	return Inputs{HispanicByRace: hispanicByRace, SexByAge: sexByAge}, nil
}

func loadConcept(
	ctx context.Context,
	src census.Source,
	resolver census.Resolver,
	concept models.Concept,
	level models.Level,
	fields ...census.Field,
) ([]models.RawRow, error) {
	vars, err := resolver.VarsForGroup(ctx, concept.Name, models.ConceptDepth)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", concept.Name, err)
	}
	table, err := src.Load(ctx, concept, level)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", concept.Name, err)
	}
	rows, err := census.Standardize(table, vars, level, fields...)
	if err != nil {
		return nil, fmt.Errorf("standardize %s: %w", concept.Name, err)
	}
	return rows, nil
}
