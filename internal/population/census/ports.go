package census

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Source,Resolver

import (
	"context"

	"acspop/internal/population/models"
)

// Source supplies the raw table of a concept at a geography level.
type Source interface {
	Load(ctx context.Context, concept models.Concept, level models.Level) (*RawTable, error)
}

// Resolver resolves the variables of a concept at a label depth. A resolved
// map must cover every count column of the concept's raw table.
type Resolver interface {
	VarsForGroup(ctx context.Context, concept string, depth int) (VariableMap, error)
}
