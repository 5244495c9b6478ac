package overview

import (
	"math"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// DefaultThreshold is the scope-validated percentage above which a group
// is highlighted.
const DefaultThreshold = types.DefaultScopeThreshold

// Stats are the counts and ratios of a group of run cases. Percentages are
// in 0..100.
type Stats struct {
	Total          int     `json:"total"`
	Executed       int     `json:"executed"`
	Remaining      int     `json:"remaining"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	Blocked        int     `json:"blocked"`
	NotRun         int     `json:"not_run"`
	Completion     float64 `json:"completion"`
	Quality        float64 `json:"quality"`
	ScopeValidated float64 `json:"scope_validated"`
}

// Compute derives the ratios from the three counts. Failed is executed
// minus passed; Blocked and NotRun are left for the caller.
func Compute(total, executed, passed int) Stats {
	s := Stats{
		Total:     total,
		Executed:  executed,
		Remaining: total - executed,
		Passed:    passed,
		Failed:    executed - passed,
	}
	if total > 0 {
		s.Completion = percent(executed, total)
		s.ScopeValidated = percent(passed, total)
	}
	if executed > 0 {
		s.Quality = percent(passed, executed)
	}
	return s
}

// FromSummary computes the stats of a status summary.
func FromSummary(sum types.Summary) Stats {
	s := Compute(sum.Total, sum.Executed(), sum.Pass)
	s.Failed = sum.Fail
	s.Blocked = sum.Blocked
	s.NotRun = sum.NotRun
	return s
}

// StatsOf computes the stats of a set of run cases.
func StatsOf(cases []*types.RunCase) Stats {
	return FromSummary(Summarize(cases))
}

// Summarize counts cases per status.
func Summarize(cases []*types.RunCase) types.Summary {
	var s types.Summary
	for _, c := range cases {
		s.Add(c.Status)
	}
	return s
}

func percent(n, d int) float64 {
	return float64(n) / float64(d) * 100
}

// ClampThreshold bounds a highlight threshold to 0..100. NaN becomes
// DefaultThreshold.
func ClampThreshold(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return DefaultThreshold
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// Highlighted reports whether a scope-validated percentage exceeds the
// threshold.
func Highlighted(scope, threshold float64) bool {
	return scope > threshold
}

// NextToExecute returns the first NOT_RUN case, or the first case when all
// have a result, or nil for an empty run.
func NextToExecute(cases []*types.RunCase) *types.RunCase {
	for _, c := range cases {
		if c.Status == types.StatusNotRun {
			return c
		}
	}
	if len(cases) > 0 {
		return cases[0]
	}
	return nil
}
