package overview

import "github.com/mesh-intelligence/tnr/pkg/types"

// Request selects what a Report covers.
type Request struct {
	Levels    []int
	Selection Selection
	Status    types.Status
	Threshold float64
}

// Report is the overview of one run: the grand total, the breakdown tree,
// per-value stats, the navigation menu and the filtered cases.
type Report struct {
	Total     Stats            `json:"total"`
	Tree      *Node            `json:"tree"`
	AxesStats []AxisValueStats `json:"axes_stats"`
	Menu      []MenuNode       `json:"menu"`
	Results   []*types.RunCase `json:"results"`
	Threshold float64          `json:"threshold"`
	Next      *types.RunCase   `json:"next"`
}

// Build computes the report of a run. The tree, totals and axis stats
// cover every case; the selection and status filter only narrow Results.
func Build(axes []*types.Axis, cases []*types.RunCase, req Request) (*Report, error) {
	tree, err := Breakdown(axes, cases, req.Levels)
	if err != nil {
		return nil, err
	}
	threshold := ClampThreshold(req.Threshold)
	tree.mark(threshold)

	stats := AxisStats(axes, cases)
	for i := range stats {
		stats[i].Highlight = Highlighted(stats[i].Stats.ScopeValidated, threshold)
	}

	results := Filter(cases, req.Selection, req.Status)
	return &Report{
		Total:     tree.Stats,
		Tree:      tree,
		AxesStats: stats,
		Menu:      MenuNodes(axes, cases),
		Results:   results,
		Threshold: threshold,
		Next:      NextToExecute(results),
	}, nil
}
