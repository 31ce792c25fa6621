package models

// ColumnType is the storage type declared for a published column.
type ColumnType string

const (
	ColumnString ColumnType = "STRING"
	ColumnInt64  ColumnType = "INT64"
	ColumnFloat  ColumnType = "FLOAT"
	ColumnBool   ColumnType = "BOOL"
)

// Published column names.
const (
	ColStateFIPS            = "state_fips"
	ColStateName            = "state_name"
	ColCountyFIPS           = "county_fips"
	ColCountyName           = "county_name"
	ColRaceAndEthnicity     = "race_and_ethnicity"
	ColRaceIncludesHispanic = "race_includes_hispanic"
	ColPopulation           = "population"
	ColPopulationPct        = "population_pct"
)

// Column declares one column of a Table.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is the sink-facing form of a Relation: a name, a column type
// declaration, and rows whose cells line up with Columns. A nil cell is a
// null.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Columns returns the column declaration for the relation's schema.
func (r Relation) Columns() []Column {
	cols := make([]Column, 0, 10)
	if r.Level == LevelCounty {
		cols = append(cols,
			Column{ColStateFIPS, ColumnString},
			Column{ColCountyFIPS, ColumnString},
			Column{ColCountyName, ColumnString})
	} else {
		cols = append(cols,
			Column{ColStateFIPS, ColumnString},
			Column{ColStateName, ColumnString})
	}
	for _, d := range r.Dims {
		cols = append(cols, Column{string(d), ColumnString})
		if d == DimRace {
			cols = append(cols,
				Column{ColRaceAndEthnicity, ColumnString},
				Column{ColRaceIncludesHispanic, ColumnBool})
		}
	}
	cols = append(cols, Column{ColPopulation, ColumnInt64})
	if r.HasShares() {
		cols = append(cols, Column{ColPopulationPct, ColumnFloat})
	}
	return cols
}

// Table converts the relation into its published form.
func (r Relation) Table() Table {
	shares := r.HasShares()
	rows := make([][]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		cells := make([]any, 0, 10)
		if r.Level == LevelCounty {
			cells = append(cells, row.Geo.StateFIPS, row.Geo.CountyFIPS, row.Geo.Name)
		} else {
			cells = append(cells, row.Geo.StateFIPS, row.Geo.Name)
		}
		for _, d := range r.Dims {
			cells = append(cells, row.Get(d))
			if d == DimRace {
				cells = append(cells, row.Race.DisplayName(), row.Race.IncludesHispanic())
			}
		}
		cells = append(cells, row.Population)
		if shares {
			if row.PopulationPct != nil {
				cells = append(cells, *row.PopulationPct)
			} else {
				cells = append(cells, nil)
			}
		}
		rows = append(rows, cells)
	}
	return Table{Name: r.Name, Columns: r.Columns(), Rows: rows}
}
