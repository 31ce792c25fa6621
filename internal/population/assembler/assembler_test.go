package assembler

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"acspop/internal/population/models"
	dErrors "acspop/pkg/domain-errors"
)

var (
	alabama = models.Geography{StateFIPS: "01", Name: "Alabama"}
	alaska  = models.Geography{StateFIPS: "02", Name: "Alaska"}
	autauga = models.Geography{StateFIPS: "01", CountyFIPS: "01001", Name: "Autauga County, Alabama"}
)

// brackets is a subset of the B01001 age brackets, enough to land in two
// decade buckets each and in both eligibility windows.
var brackets = []string{
	"Under 5 years",
	"5 to 9 years",
	"18 and 19 years",
	"20 years",
	"65 and 66 years",
	"85 years and over",
}

// sexByAgeInputs generates rows for every sex-by-age concept. Males count
// 10, 20, ... per bracket and females half that; TOTAL is scaled by 10 and
// each geography by its position.
func sexByAgeInputs(geos ...models.Geography) map[string][]models.RawRow {
	out := make(map[string][]models.RawRow)
	for _, concept := range models.SexByAgeConcepts() {
		scale := int64(1)
		if concept.Race == models.RaceTotal {
			scale = 10
		}
		var rows []models.RawRow
		for g, geo := range geos {
			for i, b := range brackets {
				male := int64(10*(i+1)) * scale * int64(g+1)
				rows = append(rows,
					models.RawRow{Geo: geo, Sex: "Male", Age: b, Population: male},
					models.RawRow{Geo: geo, Sex: "Female", Age: b, Population: male / 2},
				)
			}
		}
		out[concept.Name] = rows
	}
	return out
}

func hispanicByRaceInputs(geos ...models.Geography) []models.RawRow {
	var rows []models.RawRow
	for _, geo := range geos {
		rows = append(rows,
			models.RawRow{Geo: geo, Race: "White alone", Hispanic: models.NotHispanicOrLatino, Population: 2000},
			models.RawRow{Geo: geo, Race: "White alone", Hispanic: models.HispanicOrLatino, Population: 300},
			models.RawRow{Geo: geo, Race: "Black or African American alone", Hispanic: models.NotHispanicOrLatino, Population: 700},
			models.RawRow{Geo: geo, Race: "Two or more races", Hispanic: models.NotHispanicOrLatino, Population: 150},
		)
	}
	return rows
}

type AssemblerSuite struct {
	suite.Suite
	state  *Assembler
	county *Assembler
}

func TestAssemblerSuite(t *testing.T) {
	suite.Run(t, new(AssemblerSuite))
}

func (s *AssemblerSuite) SetupTest() {
	var err error
	s.state, err = New(models.LevelState)
	s.Require().NoError(err)
	s.county, err = New(models.LevelCounty)
	s.Require().NoError(err)
}

// find returns the single row of rel matching geo and the given race, sex
// and age values ("" matches only an absent dimension).
func (s *AssemblerSuite) find(rel models.Relation, geo models.Geography, race models.Category, sex, age string) models.Row {
	var found []models.Row
	for _, row := range rel.Rows {
		if row.Geo == geo && row.Race == race && row.Sex == sex && row.Age == age {
			found = append(found, row)
		}
	}
	s.Require().Len(found, 1, "%s: %s/%s/%s/%s", rel.Name, geo.Name, race, sex, age)
	return found[0]
}

func (s *AssemblerSuite) TestNew() {
	s.Run("rejects unknown level", func() {
		_, err := New(models.Level("tract"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("keeps level", func() {
		s.Equal(models.LevelCounty, s.county.Level())
	})
}

func (s *AssemblerSuite) TestBySexAgeRace() {
	rel, err := s.state.BySexAgeRace(sexByAgeInputs(alabama, alaska))
	s.Require().NoError(err)
	s.Equal("by_sex_age_race_state_std", rel.Name)

	s.Run("renames brackets and stamps race", func() {
		row := s.find(rel, alabama, models.RaceAsian, "Male", "0-4")
		s.Equal(int64(10), row.Population)
		row = s.find(rel, alaska, models.RaceTotal, "Female", "85+")
		s.Equal(int64(600), row.Population)
	})

	s.Run("derives age and sex totals", func() {
		s.Equal(int64(2100), s.find(rel, alabama, models.RaceTotal, "Male", models.TotalValue).Population)
		s.Equal(int64(1050), s.find(rel, alabama, models.RaceTotal, "Female", models.TotalValue).Population)
		s.Equal(int64(3150), s.find(rel, alabama, models.RaceTotal, models.TotalValue, models.TotalValue).Population)
		s.Equal(int64(150), s.find(rel, alabama, models.RaceTotal, models.TotalValue, "0-4").Population)
		s.Equal(int64(630), s.find(rel, alaska, models.RaceHisp, models.TotalValue, models.TotalValue).Population)
	})

	s.Run("sex total equals sum over sexes", func() {
		for _, concept := range models.SexByAgeConcepts() {
			total := s.find(rel, alaska, concept.Race, models.TotalValue, models.TotalValue).Population
			male := s.find(rel, alaska, concept.Race, "Male", models.TotalValue).Population
			female := s.find(rel, alaska, concept.Race, "Female", models.TotalValue).Population
			s.Equal(total, male+female, concept.Name)
		}
	})

	s.Run("sorted by geography first", func() {
		s.Equal(alabama, rel.Rows[0].Geo)
		s.Equal(alaska, rel.Rows[len(rel.Rows)-1].Geo)
	})

	s.Run("missing concept is a shape error", func() {
		in := sexByAgeInputs(alabama)
		delete(in, "SEX BY AGE (ASIAN ALONE)")
		_, err := s.state.BySexAgeRace(in)
		s.True(dErrors.HasCode(err, dErrors.CodeShape))
	})
}

func (s *AssemblerSuite) TestBySexAgeState() {
	base, err := s.state.BySexAgeRace(sexByAgeInputs(alabama))
	s.Require().NoError(err)
	rel, err := s.state.BySexAge(base)
	s.Require().NoError(err)
	s.Equal("by_sex_age_state", rel.Name)
	s.Equal([]models.Dimension{models.DimSex, models.DimAge}, rel.Dims)

	s.Run("decade buckets", func() {
		s.Equal(int64(300), s.find(rel, alabama, "", "Male", "0-9").Population)
		s.Equal(int64(300), s.find(rel, alabama, "", "Male", "10-19").Population)
		s.Equal(int64(400), s.find(rel, alabama, "", "Male", "20-29").Population)
		s.Equal(int64(500), s.find(rel, alabama, "", "Male", "60-69").Population)
		s.Equal(int64(600), s.find(rel, alabama, "", "Male", "80+").Population)
	})

	s.Run("eligibility buckets", func() {
		s.Equal(int64(700), s.find(rel, alabama, "", "Male", "18-44").Population)
		s.Equal(int64(1100), s.find(rel, alabama, "", "Male", "65+").Population)
		s.Equal(int64(1050), s.find(rel, alabama, "", models.TotalValue, "18-44").Population)
	})

	s.Run("one total row per sex", func() {
		s.Equal(int64(2100), s.find(rel, alabama, "", "Male", models.TotalValue).Population)
		s.Equal(int64(3150), s.find(rel, alabama, "", models.TotalValue, models.TotalValue).Population)
	})

	s.Run("no shares", func() {
		s.False(rel.HasShares())
	})
}

func (s *AssemblerSuite) TestBySexAgeCounty() {
	base, err := s.county.BySexAgeRace(sexByAgeInputs(autauga))
	s.Require().NoError(err)
	rel, err := s.county.BySexAge(base)
	s.Require().NoError(err)
	s.Equal("by_sex_age_county", rel.Name)

	for _, row := range rel.Rows {
		s.NotContains([]string{"18-44", "45-64", "65+"}, row.Age)
	}
	s.Equal(int64(450), s.find(rel, autauga, "", models.TotalValue, "0-9").Population)
}

func (s *AssemblerSuite) TestByAge() {
	base, err := s.state.BySexAgeRace(sexByAgeInputs(alabama))
	s.Require().NoError(err)
	bySexAge, err := s.state.BySexAge(base)
	s.Require().NoError(err)
	rel, err := s.state.ByAge(bySexAge)
	s.Require().NoError(err)
	s.Equal([]models.Dimension{models.DimAge}, rel.Dims)

	s.Run("share of the age total", func() {
		s.InDelta(1.0/7, *s.find(rel, alabama, "", "", "0-9").PopulationPct, 1e-9)
		s.InDelta(1.0/3, *s.find(rel, alabama, "", "", "18-44").PopulationPct, 1e-9)
		s.InDelta(1.0, *s.find(rel, alabama, "", "", models.TotalValue).PopulationPct, 1e-9)
	})

	s.Run("decade shares sum to one", func() {
		var sum float64
		for _, row := range rel.Rows {
			if _, isDecade := map[string]bool{"0-9": true, "10-19": true, "20-29": true, "60-69": true, "80+": true}[row.Age]; isDecade {
				sum += *row.PopulationPct
			}
		}
		s.InDelta(1.0, sum, 1e-9)
	})
}

func (s *AssemblerSuite) TestBySex() {
	base, err := s.state.BySexAgeRace(sexByAgeInputs(alabama, alaska))
	s.Require().NoError(err)
	rel, err := s.state.BySex(base)
	s.Require().NoError(err)
	s.Equal("by_sex_state", rel.Name)
	s.Len(rel.Rows, 6)

	for _, geo := range []models.Geography{alabama, alaska} {
		male := *s.find(rel, geo, "", "Male", "").PopulationPct
		female := *s.find(rel, geo, "", "Female", "").PopulationPct
		s.InDelta(2.0/3, male, 1e-9)
		s.InDelta(1.0, male+female, 1e-9)
	}
}

func (s *AssemblerSuite) TestBuild() {
	s.Run("produces every relation", func() {
		rels, err := s.state.Build(Inputs{
			HispanicByRace: hispanicByRaceInputs(alabama, alaska),
			SexByAge:       sexByAgeInputs(alabama, alaska),
		})
		s.Require().NoError(err)

		names := make([]string, 0, 5)
		for _, rel := range rels.All() {
			names = append(names, rel.Name)
			s.NotEmpty(rel.Rows, rel.Name)
		}
		s.Equal(models.RelationNames(models.LevelState), names)
		s.Equal(int64(3150), s.find(rels.ByRace, alabama, models.RaceTotal, "", "").Population)
	})

	s.Run("fails as a whole on unknown race", func() {
		hisp := hispanicByRaceInputs(alabama)
		hisp[0].Race = "Martian alone"
		rels, err := s.state.Build(Inputs{HispanicByRace: hisp, SexByAge: sexByAgeInputs(alabama)})
		s.Nil(rels)
		s.True(dErrors.HasCode(err, dErrors.CodeMapping))
	})
}
