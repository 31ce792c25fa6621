package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acspop/internal/population/models"
	dErrors "acspop/pkg/domain-errors"
)

var (
	s1 = models.Geography{StateFIPS: "01", Name: "Alabama"}
	s2 = models.Geography{StateFIPS: "02", Name: "Alaska"}
)

func raw(geo models.Geography, race, hispanic string, pop int64) models.RawRow {
	return models.RawRow{Geo: geo, Race: race, Hispanic: hispanic, Population: pop}
}

func sampleRows() []models.RawRow {
	return []models.RawRow{
		raw(s1, "White alone", models.NotHispanicOrLatino, 100),
		raw(s1, "White alone", models.HispanicOrLatino, 10),
		raw(s1, "Black or African American alone", models.NotHispanicOrLatino, 50),
		raw(s1, "Black or African American alone", models.HispanicOrLatino, 2),
		raw(s1, "Two or more races", models.NotHispanicOrLatino, 7),
		raw(s1, "Two or more races", models.HispanicOrLatino, 3),
		raw(s1, "Some other race alone", models.NotHispanicOrLatino, 1),
		raw(s1, "Some other race alone", models.HispanicOrLatino, 9),
		raw(s2, "Asian alone", models.NotHispanicOrLatino, 40),
		raw(s2, "American Indian and Alaska Native alone", models.NotHispanicOrLatino, 60),
		raw(s2, "Native Hawaiian and Other Pacific Islander alone", models.HispanicOrLatino, 5),
	}
}

func pop(t *testing.T, rel models.Relation, geo models.Geography, cat models.Category) int64 {
	t.Helper()
	for _, row := range rel.Rows {
		if row.Geo == geo && row.Race == cat {
			return row.Population
		}
	}
	t.Fatalf("no %s row for %s", cat, geo.StateFIPS)
	return 0
}

func TestExclusiveScenario(t *testing.T) {
	rows := []models.RawRow{
		raw(s1, "White alone", models.NotHispanicOrLatino, 100),
		raw(s1, "White alone", models.HispanicOrLatino, 10),
	}

	exclusive, err := Exclusive(rows, models.LevelState)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.Row{
		{Geo: s1, Race: models.RaceWhiteNH, Population: 100},
		{Geo: s1, Race: models.RaceHisp, Population: 10},
	}, exclusive.Rows)

	all, err := AllRaces(rows, models.LevelState)
	require.NoError(t, err)
	assert.Equal(t, int64(110), pop(t, all, s1, models.RaceTotal))
}

func TestInclusive(t *testing.T) {
	inclusive, err := Inclusive(sampleRows(), models.LevelState)
	require.NoError(t, err)

	assert.Equal(t, int64(158), pop(t, inclusive, s1, models.RaceNH))
	assert.Equal(t, int64(24), pop(t, inclusive, s1, models.RaceHisp))
	assert.Equal(t, int64(110), pop(t, inclusive, s1, models.RaceWhite))
	assert.Equal(t, int64(10), pop(t, inclusive, s1, models.RaceMulti))
	assert.Equal(t, int64(5), pop(t, inclusive, s2, models.RaceNHPI))
}

func TestExclusivePartitionSumsToTotal(t *testing.T) {
	all, err := AllRaces(sampleRows(), models.LevelState)
	require.NoError(t, err)

	exclusive := append(models.ExclusiveRaceCategories(), models.RaceHisp)
	for _, geo := range []models.Geography{s1, s2} {
		total := pop(t, all, geo, models.RaceTotal)
		var sum int64
		for _, row := range all.Rows {
			if row.Geo != geo {
				continue
			}
			for _, c := range exclusive {
				if row.Race == c {
					sum += row.Population
				}
			}
		}
		assert.Equal(t, total, sum, geo.StateFIPS)

		var share float64
		for _, row := range all.Rows {
			if row.Geo != geo {
				continue
			}
			for _, c := range exclusive {
				if row.Race == c {
					share += *row.PopulationPct
				}
			}
		}
		assert.InDelta(t, 1.0, share, 1e-6, geo.StateFIPS)
	}
}

func TestAllRacesDerivedRows(t *testing.T) {
	all, err := AllRaces(sampleRows(), models.LevelState)
	require.NoError(t, err)

	assert.Equal(t, "by_race_state_std", all.Name)
	assert.Equal(t, int64(182), pop(t, all, s1, models.RaceTotal))
	assert.Equal(t, int64(20), pop(t, all, s1, models.RaceMultiOrOtherStandard))
	assert.Equal(t, int64(8), pop(t, all, s1, models.RaceMultiOrOtherStandardNH))
	assert.Equal(t, int64(105), pop(t, all, s2, models.RaceTotal))

	hispRows := 0
	for _, row := range all.Rows {
		require.NotNil(t, row.PopulationPct)
		if row.Geo == s1 && row.Race == models.RaceHisp {
			hispRows++
		}
		if row.Race == models.RaceTotal {
			assert.Equal(t, 1.0, *row.PopulationPct)
		}
	}
	assert.Equal(t, 1, hispRows, "HISP must appear once per geography")

	for i := 1; i < len(all.Rows); i++ {
		prev, cur := all.Rows[i-1], all.Rows[i]
		if prev.Geo == cur.Geo {
			assert.Less(t, string(prev.Race), string(cur.Race))
		} else {
			assert.True(t, prev.Geo.Less(cur.Geo))
		}
	}
}

func TestUnknownStringsAreFatal(t *testing.T) {
	t.Run("race", func(t *testing.T) {
		rows := append(sampleRows(), raw(s1, "Martian alone", models.NotHispanicOrLatino, 1))
		_, err := AllRaces(rows, models.LevelState)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMapping))
	})

	t.Run("race on a hispanic row", func(t *testing.T) {
		rows := []models.RawRow{raw(s1, "Martian alone", models.HispanicOrLatino, 1)}
		_, err := Exclusive(rows, models.LevelState)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMapping))
	})

	t.Run("hispanic origin", func(t *testing.T) {
		rows := []models.RawRow{raw(s1, "White alone", "Maybe", 1)}
		_, err := Inclusive(rows, models.LevelState)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMapping))
	})
}

func TestRawRowsUntouched(t *testing.T) {
	rows := sampleRows()
	before := append([]models.RawRow(nil), rows...)
	_, err := AllRaces(rows, models.LevelState)
	require.NoError(t, err)
	assert.Equal(t, before, rows)
}
