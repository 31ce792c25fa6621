// Package age normalizes census age-bracket labels and buckets them into
// coarser windows.
package age

import (
	"strconv"
	"strings"

	"acspop/internal/population/models"
)

// Unknown is the decade bucket for brackets outside the known set.
const Unknown = "Unknown"

// RenameBracket converts a census age bracket into "low-high" (inclusive)
// or "low+" form. Unrecognized text is returned unchanged, which makes the
// function idempotent on already-canonical brackets.
//
//	"Under 5 years"      -> "0-4"
//	"20 to 24 years"     -> "20-24"
//	"20 and 21 years"    -> "20-21"
//	"20 years"           -> "20-20"
//	"85 years and over"  -> "85+"
func RenameBracket(bracket string) string {
	parts := strings.Fields(bracket)
	switch {
	case len(parts) == 3 && parts[0] == "Under" && parts[2] == "years":
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return bracket
		}
		return "0-" + strconv.Itoa(n-1)
	case len(parts) == 4 && (parts[1] == "to" || parts[1] == "and") && parts[3] == "years":
		return parts[0] + "-" + parts[2]
	case len(parts) == 2 && parts[1] == "years":
		return parts[0] + "-" + parts[0]
	case len(parts) == 4 && parts[1] == "years" && parts[2] == "and" && parts[3] == "over":
		return parts[0] + "+"
	}
	return bracket
}

var decadeBuckets = bucketTable(map[string][]string{
	"0-9":   {"0-4", "5-9"},
	"10-19": {"10-14", "15-17", "18-19"},
	"20-29": {"20-20", "21-21", "22-24", "25-29"},
	"30-39": {"30-34", "35-39"},
	"40-49": {"40-44", "45-49"},
	"50-59": {"50-54", "55-59"},
	"60-69": {"60-61", "62-64", "65-66", "67-69"},
	"70-79": {"70-74", "75-79"},
	"80+":   {"80-84", "85+"},
})

var eligibilityBuckets = bucketTable(map[string][]string{
	"18-44": {"18-19", "20-24", "20-20", "21-21", "22-24", "25-29", "30-34", "35-44", "35-39", "40-44"},
	"45-64": {"45-54", "45-49", "50-54", "55-64", "55-59", "60-61", "62-64"},
	"65+":   {"65-74", "65-66", "67-69", "70-74", "75-84", "75-79", "80-84", "85+"},
})

// bucketTable inverts bucket -> brackets; "Total" always maps to itself.
func bucketTable(buckets map[string][]string) map[string]string {
	out := map[string]string{models.TotalValue: models.TotalValue}
	for bucket, brackets := range buckets {
		for _, b := range brackets {
			out[b] = bucket
		}
	}
	return out
}

// DecadeBucket maps a canonical bracket to its decade window (0-9 ... 80+)
// or "Total". Every input has a bucket; unknown brackets map to Unknown.
func DecadeBucket(bracket string) string {
	if b, ok := decadeBuckets[bracket]; ok {
		return b
	}
	return Unknown
}

// EligibilityBucket maps a canonical bracket to one of 18-44, 45-64, 65+ or
// "Total". Brackets outside those windows have no bucket and ok is false.
func EligibilityBucket(bracket string) (string, bool) {
	b, ok := eligibilityBuckets[bracket]
	return b, ok
}

// Decade is DecadeBucket in the partial-mapping form used for relabeling.
func Decade(bracket string) (string, bool) {
	return DecadeBucket(bracket), true
}

// Eligibility is EligibilityBucket in the partial-mapping form.
func Eligibility(bracket string) (string, bool) {
	return EligibilityBucket(bracket)
}
