package models

import (
	dErrors "acspop/pkg/domain-errors"
)

// Level is the geography granularity of a pipeline run.
type Level string

const (
	LevelState  Level = "state"
	LevelCounty Level = "county"
)

// ParseLevel validates a level name.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid geography level %q: must be 'state' or 'county'", s)
	}
	return l, nil
}

func (l Level) IsValid() bool {
	return l == LevelState || l == LevelCounty
}

func (l Level) String() string {
	return string(l)
}

// Suffix is appended to file and table names, e.g. "_county".
func (l Level) Suffix() string {
	return "_" + string(l)
}

// Geography identifies one reporting unit. County geographies always carry
// their parent state code; CountyFIPS is the full 5-digit code.
type Geography struct {
	StateFIPS  string
	CountyFIPS string
	Name       string
}

// Level reports the granularity this geography was read at.
func (g Geography) Level() Level {
	if g.CountyFIPS != "" {
		return LevelCounty
	}
	return LevelState
}

// Less orders geographies by state, then county code.
func (g Geography) Less(o Geography) bool {
	if g.StateFIPS != o.StateFIPS {
		return g.StateFIPS < o.StateFIPS
	}
	return g.CountyFIPS < o.CountyFIPS
}
