package models

// TotalValue labels derived sum rows along the sex and age dimensions.
const TotalValue = "Total"

// Dimension names a categorical column of a breakdown relation.
type Dimension string

const (
	DimRace Dimension = "race_category_id"
	DimSex  Dimension = "sex"
	DimAge  Dimension = "age"
)

// RawRow is one geography × demographic cell of a raw survey concept. Rows
// of the Hispanic-by-race concept carry Race and Hispanic; rows of the
// sex-by-age concepts carry Sex and Age.
type RawRow struct {
	Geo        Geography
	Race       string
	Hispanic   string
	Sex        string
	Age        string
	Population int64
}

// Row is one demographic breakdown cell. Only the dimensions listed by the
// owning Relation are meaningful.
type Row struct {
	Geo           Geography
	Race          Category
	Sex           string
	Age           string
	Population    int64
	PopulationPct *float64
}

// Get returns the row's value along d.
func (r Row) Get(d Dimension) string {
	switch d {
	case DimRace:
		return string(r.Race)
	case DimSex:
		return r.Sex
	case DimAge:
		return r.Age
	}
	return ""
}

// With returns a copy of r with d set to v.
func (r Row) With(d Dimension, v string) Row {
	switch d {
	case DimRace:
		r.Race = Category(v)
	case DimSex:
		r.Sex = v
	case DimAge:
		r.Age = v
	}
	return r
}

// Relation is a named set of breakdown rows over a fixed dimension subset.
// Relations are values: transforms build new relations and never modify the
// rows of their input.
type Relation struct {
	Name  string
	Level Level
	Dims  []Dimension
	Rows  []Row
}

// HasDim reports whether d is one of the relation's dimensions.
func (r Relation) HasDim(d Dimension) bool {
	for _, dim := range r.Dims {
		if dim == d {
			return true
		}
	}
	return false
}

// WithRows returns a relation with r's schema and the given rows.
func (r Relation) WithRows(rows []Row) Relation {
	dims := make([]Dimension, len(r.Dims))
	copy(dims, r.Dims)
	return Relation{Name: r.Name, Level: r.Level, Dims: dims, Rows: rows}
}

// HasShares reports whether any row carries a percentage share.
func (r Relation) HasShares() bool {
	for _, row := range r.Rows {
		if row.PopulationPct != nil {
			return true
		}
	}
	return false
}

// Population sums the population of rows matching pred.
func (r Relation) Population(pred func(Row) bool) int64 {
	var total int64
	for _, row := range r.Rows {
		if pred(row) {
			total += row.Population
		}
	}
	return total
}
