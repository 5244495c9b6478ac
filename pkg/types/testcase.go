package types

import (
	"strconv"
	"time"
)

// AnalyticalValues maps an axis level number, as a decimal string, to the
// value label a case carries on that axis. String keys keep the JSON shape
// {"1": "Chrome", "2": "Prod"}.
type AnalyticalValues map[string]string

// LevelKey formats a level number as an AnalyticalValues key.
func LevelKey(level int) string {
	return strconv.Itoa(level)
}

// Value returns the value for level, or "" when unset.
func (av AnalyticalValues) Value(level int) string {
	if av == nil {
		return ""
	}
	return av[LevelKey(level)]
}

// Clone returns a copy with empty values dropped.
func (av AnalyticalValues) Clone() AnalyticalValues {
	out := make(AnalyticalValues, len(av))
	for k, v := range av {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// TestCase is a Test Book case: a parameterized case tagged with analytical
// values. Runs snapshot the active cases of a project.
type TestCase struct {
	ID               int64            `json:"id"`
	ProjectID        int64            `json:"project_id"`
	CaseNumber       int              `json:"case_number"`
	Title            string           `json:"title"`
	Steps            string           `json:"steps"`
	ExpectedResult   string           `json:"expected_result"`
	IsActive         bool             `json:"is_active"`
	AnalyticalValues AnalyticalValues `json:"analytical_values"`
	Attachments      []string         `json:"attachments"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
