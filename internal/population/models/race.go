package models

import (
	dErrors "acspop/pkg/domain-errors"
)

// Category is a canonical race/ethnicity tag.
//
// Two schemes coexist and are never merged:
//   - inclusive: WHITE, BLACK, ... may contain Hispanic individuals;
//     Hispanic origin is a separate axis (HISP / NH).
//   - exclusive: the _NH categories plus HISP partition the population
//     with no overlap.
type Category string

const (
	RaceTotal         Category = "TOTAL"
	RaceWhite         Category = "WHITE"
	RaceBlack         Category = "BLACK"
	RaceAIAN          Category = "AIAN"
	RaceAsian         Category = "ASIAN"
	RaceNHPI          Category = "NHPI"
	RaceOtherStandard Category = "OTHER_STANDARD"
	RaceMulti         Category = "MULTI"
	RaceHisp          Category = "HISP"
	RaceNH            Category = "NH"

	RaceWhiteNH         Category = "WHITE_NH"
	RaceBlackNH         Category = "BLACK_NH"
	RaceAIANNH          Category = "AIAN_NH"
	RaceAsianNH         Category = "ASIAN_NH"
	RaceNHPINH          Category = "NHPI_NH"
	RaceOtherStandardNH Category = "OTHER_STANDARD_NH"
	RaceMultiNH         Category = "MULTI_NH"

	RaceMultiOrOtherStandard   Category = "MULTI_OR_OTHER_STANDARD"
	RaceMultiOrOtherStandardNH Category = "MULTI_OR_OTHER_STANDARD_NH"
)

// Raw census strings for the Hispanic-origin axis.
const (
	HispanicOrLatino    = "Hispanic or Latino"
	NotHispanicOrLatino = "Not Hispanic or Latino"
)

type categoryInfo struct {
	displayName      string
	includesHispanic bool
}

var categories = map[Category]categoryInfo{
	RaceTotal:                  {"Total", true},
	RaceWhite:                  {"White", true},
	RaceBlack:                  {"Black or African American", true},
	RaceAIAN:                   {"American Indian and Alaska Native", true},
	RaceAsian:                  {"Asian", true},
	RaceNHPI:                   {"Native Hawaiian and Pacific Islander", true},
	RaceOtherStandard:          {"Some other race", true},
	RaceMulti:                  {"Two or more races", true},
	RaceHisp:                   {"Hispanic or Latino", true},
	RaceNH:                     {"Not Hispanic or Latino", false},
	RaceWhiteNH:                {"White (Non-Hispanic)", false},
	RaceBlackNH:                {"Black or African American (Non-Hispanic)", false},
	RaceAIANNH:                 {"American Indian and Alaska Native (Non-Hispanic)", false},
	RaceAsianNH:                {"Asian (Non-Hispanic)", false},
	RaceNHPINH:                 {"Native Hawaiian and Pacific Islander (Non-Hispanic)", false},
	RaceOtherStandardNH:        {"Some other race (Non-Hispanic)", false},
	RaceMultiNH:                {"Two or more races (Non-Hispanic)", false},
	RaceMultiOrOtherStandard:   {"Two or more races & Some other race", true},
	RaceMultiOrOtherStandardNH: {"Two or more races & Some other race (Non-Hispanic)", false},
}

// IsValid reports whether c is one of the closed set of categories.
func (c Category) IsValid() bool {
	_, ok := categories[c]
	return ok
}

// DisplayName is the human-readable race_and_ethnicity label.
func (c Category) DisplayName() string {
	return categories[c].displayName
}

// IncludesHispanic reports whether the category may contain Hispanic
// individuals.
func (c Category) IncludesHispanic() bool {
	return categories[c].includesHispanic
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory validates a category tag.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeMapping, "unknown race category %q", s)
	}
	return c, nil
}

// raceTable is a bidirectional mapping between raw census race strings and
// categories of one scheme.
type raceTable struct {
	toCategory map[string]Category
	toRaw      map[Category]string
}

func newRaceTable(pairs map[string]Category) raceTable {
	t := raceTable{
		toCategory: make(map[string]Category, len(pairs)),
		toRaw:      make(map[Category]string, len(pairs)),
	}
	for raw, c := range pairs {
		t.toCategory[raw] = c
		t.toRaw[c] = raw
	}
	return t
}

var (
	includeHispanic = newRaceTable(map[string]Category{
		"American Indian and Alaska Native alone":          RaceAIAN,
		"Asian alone":                                      RaceAsian,
		"Black or African American alone":                  RaceBlack,
		"Native Hawaiian and Other Pacific Islander alone": RaceNHPI,
		"Some other race alone":                            RaceOtherStandard,
		"Two or more races":                                RaceMulti,
		"White alone":                                      RaceWhite,
	})
	excludeHispanic = newRaceTable(map[string]Category{
		"American Indian and Alaska Native alone":          RaceAIANNH,
		"Asian alone":                                      RaceAsianNH,
		"Black or African American alone":                  RaceBlackNH,
		"Native Hawaiian and Other Pacific Islander alone": RaceNHPINH,
		"Some other race alone":                            RaceOtherStandardNH,
		"Two or more races":                                RaceMultiNH,
		"White alone":                                      RaceWhiteNH,
	})
)

// InclusiveCategory maps a raw race string to its Hispanic-inclusive
// category.
func InclusiveCategory(raw string) (Category, error) {
	c, ok := includeHispanic.toCategory[raw]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeMapping, "race %q has no inclusive category", raw)
	}
	return c, nil
}

// ExclusiveCategory maps a raw race string to its non-Hispanic category.
func ExclusiveCategory(raw string) (Category, error) {
	c, ok := excludeHispanic.toCategory[raw]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeMapping, "race %q has no exclusive category", raw)
	}
	return c, nil
}

// RawRaceString returns the census string a category was mapped from, in
// either scheme.
func RawRaceString(c Category) (string, bool) {
	if raw, ok := includeHispanic.toRaw[c]; ok {
		return raw, true
	}
	raw, ok := excludeHispanic.toRaw[c]
	return raw, ok
}

// InclusiveRaceCategories lists the race categories of the inclusive scheme,
// excluding the Hispanic axis. Their sum is the total population.
func InclusiveRaceCategories() []Category {
	return []Category{RaceAIAN, RaceAsian, RaceBlack, RaceNHPI, RaceOtherStandard, RaceMulti, RaceWhite}
}

// ExclusiveRaceCategories lists the _NH categories. Together with HISP they
// partition the total population.
func ExclusiveRaceCategories() []Category {
	return []Category{RaceAIANNH, RaceAsianNH, RaceBlackNH, RaceNHPINH, RaceOtherStandardNH, RaceMultiNH, RaceWhiteNH}
}

// IsHispanic reads the Hispanic-origin axis. Strings other than the two
// census values are a mapping failure.
func IsHispanic(raw string) (bool, error) {
	switch raw {
	case HispanicOrLatino:
		return true, nil
	case NotHispanicOrLatino:
		return false, nil
	}
	return false, dErrors.Newf(dErrors.CodeMapping, "unknown hispanic origin %q", raw)
}
