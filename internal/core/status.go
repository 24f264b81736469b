package core

// Status is the normalized per-day station quality. It is a closed
// enumeration: any upstream result text outside the mapping table collapses
// to StatusNoData.
type Status string

const (
	StatusGood   Status = "Good"
	StatusFair   Status = "Fair"
	StatusPoor   Status = "Poor"
	StatusNoData Status = "NoData"
)

// resultMapping translates the upstream's free-text result vocabulary.
// Matching is exact and case-sensitive; the upstream emits these strings
// verbatim.
var resultMapping = map[string]Status{
	"Baik":       StatusGood,
	"Cukup Baik": StatusFair,
	"Buruk":      StatusPoor,
}

// NormalizeResult maps an upstream result string onto the Status enum.
// Unknown or empty input yields StatusNoData, never an error.
func NormalizeResult(result string) Status {
	if s, ok := resultMapping[result]; ok {
		return s
	}
	return StatusNoData
}
