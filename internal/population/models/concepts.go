package models

// Concept is one ACS table grouping. Sex-by-age concepts carry the race
// category every row of the concept is stamped with.
type Concept struct {
	Group string
	Name  string
	Race  Category
}

// ConceptDepth is the number of label parts below "Estimate!!Total" read
// from every concept: (hispanic, race) or (sex, age).
const ConceptDepth = 2

// HispanicByRace is the only concept carrying both race and Hispanic origin.
// It has no sex or age breakdown.
var HispanicByRace = Concept{Group: "B03002", Name: "HISPANIC OR LATINO ORIGIN BY RACE"}

var sexByAge = []Concept{
	{Group: "B01001", Name: "SEX BY AGE", Race: RaceTotal},
	{Group: "B01001A", Name: "SEX BY AGE (WHITE ALONE)", Race: RaceWhite},
	{Group: "B01001B", Name: "SEX BY AGE (BLACK OR AFRICAN AMERICAN ALONE)", Race: RaceBlack},
	{Group: "B01001C", Name: "SEX BY AGE (AMERICAN INDIAN AND ALASKA NATIVE ALONE)", Race: RaceAIAN},
	{Group: "B01001D", Name: "SEX BY AGE (ASIAN ALONE)", Race: RaceAsian},
	{Group: "B01001E", Name: "SEX BY AGE (NATIVE HAWAIIAN AND OTHER PACIFIC ISLANDER ALONE)", Race: RaceNHPI},
	{Group: "B01001F", Name: "SEX BY AGE (SOME OTHER RACE ALONE)", Race: RaceOtherStandard},
	{Group: "B01001G", Name: "SEX BY AGE (TWO OR MORE RACES)", Race: RaceMulti},
	{Group: "B01001H", Name: "SEX BY AGE (WHITE ALONE, NOT HISPANIC OR LATINO)", Race: RaceWhiteNH},
	{Group: "B01001I", Name: "SEX BY AGE (HISPANIC OR LATINO)", Race: RaceHisp},
}

// SexByAgeConcepts returns the ten sex-by-age concepts: nine race-filtered
// and one unfiltered (TOTAL).
func SexByAgeConcepts() []Concept {
	out := make([]Concept, len(sexByAge))
	copy(out, sexByAge)
	return out
}

// AllConcepts returns every concept a level run reads.
func AllConcepts() []Concept {
	return append([]Concept{HispanicByRace}, SexByAgeConcepts()...)
}

// Groups returns the ACS group ids of AllConcepts.
func Groups() []string {
	concepts := AllConcepts()
	groups := make([]string, 0, len(concepts))
	for _, c := range concepts {
		groups = append(groups, c.Group)
	}
	return groups
}
