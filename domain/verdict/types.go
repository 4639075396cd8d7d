package verdict

import (
	"allday/domain/stats"
)

// Status classifies a rendered comparison
type Status string

const (
	StatusSignificant    Status = "significant"
	StatusNotSignificant Status = "not_significant"
	StatusNoComparison   Status = "no_comparison"
)

// Record is the presentation-facing result of one comparison
type Record struct {
	Label      string           `json:"label"`
	Comparison string           `json:"comparison"`
	Verdict    string           `json:"verdict"`
	Status     Status           `json:"status"`
	Result     stats.TestResult `json:"result"`
}

// StatusOf classifies a test result
func StatusOf(r stats.TestResult) Status {
	switch {
	case !r.Comparable():
		return StatusNoComparison
	case r.Significant:
		return StatusSignificant
	default:
		return StatusNotSignificant
	}
}

// Family is a rendered set of records judged against one corrected alpha
type Family struct {
	Name    string   `json:"name"`
	Size    int      `json:"size"`
	Alpha   float64  `json:"alpha"`
	Records []Record `json:"records"`
}

// Significant returns the records that cleared the corrected threshold
func (f Family) Significant() []Record {
	var out []Record
	for _, r := range f.Records {
		if r.Status == StatusSignificant {
			out = append(out, r)
		}
	}
	return out
}
