package models

// Canonical relation names for a level, e.g. by_race_state_std.

func ByRaceName(l Level) string       { return "by_race" + l.Suffix() + "_std" }
func BySexAgeRaceName(l Level) string { return "by_sex_age_race" + l.Suffix() + "_std" }
func BySexAgeName(l Level) string     { return "by_sex_age" + l.Suffix() }
func ByAgeName(l Level) string        { return "by_age" + l.Suffix() }
func BySexName(l Level) string        { return "by_sex" + l.Suffix() }

// RelationNames lists every canonical relation produced for a level.
func RelationNames(l Level) []string {
	return []string{ByRaceName(l), BySexAgeRaceName(l), BySexAgeName(l), ByAgeName(l), BySexName(l)}
}
