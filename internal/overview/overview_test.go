package overview

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

func testAxes() []*types.Axis {
	return []*types.Axis{
		{ID: 1, LevelNumber: 1, Label: "Browser", Values: []types.AxisValue{
			{ValueLabel: "Firefox", SortOrder: 1},
			{ValueLabel: "Chrome", SortOrder: 2},
		}},
		{ID: 2, LevelNumber: 2, Label: "Env", Values: []types.AxisValue{
			{ValueLabel: "Staging", SortOrder: 1},
			{ValueLabel: "Prod", SortOrder: 2},
		}},
	}
}

func rc(n int, st types.Status, values map[string]string) *types.RunCase {
	return &types.RunCase{ID: int64(n), CaseNumber: n, Status: st, AnalyticalValues: values}
}

// testCases has Chrome before Firefox in case order and one case using a
// value no axis defines.
func testCases() []*types.RunCase {
	return []*types.RunCase{
		rc(1, types.StatusPass, map[string]string{"1": "Chrome", "2": "Prod"}),
		rc(2, types.StatusFail, map[string]string{"1": "Chrome", "2": "Staging"}),
		rc(3, types.StatusPass, map[string]string{"1": "Firefox", "2": "Prod"}),
		rc(4, types.StatusNotRun, map[string]string{"1": "Firefox"}),
		rc(5, types.StatusBlocked, map[string]string{"1": "Edge", "2": "Prod"}),
		rc(6, types.StatusPass, map[string]string{"1": "Brave"}),
		rc(7, types.StatusNotRun, map[string]string{}),
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name                        string
		total, executed, passed     int
		wantCompletion, wantQuality float64
		wantScope                   float64
		wantRemaining               int
	}{
		{"empty", 0, 0, 0, 0, 0, 0, 0},
		{"nothing executed", 4, 0, 0, 0, 0, 0, 4},
		{"half done all passing", 4, 2, 2, 50, 100, 50, 2},
		{"all done one failing", 4, 4, 3, 100, 75, 75, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.total, tt.executed, tt.passed)
			assert.Equal(t, tt.wantCompletion, s.Completion)
			assert.Equal(t, tt.wantQuality, s.Quality)
			assert.Equal(t, tt.wantScope, s.ScopeValidated)
			assert.Equal(t, tt.wantRemaining, s.Remaining)
			assert.Equal(t, tt.executed-tt.passed, s.Failed)
		})
	}
}

func TestStatsOfCountsBlockedAsRemaining(t *testing.T) {
	s := StatsOf(testCases())
	assert.Equal(t, 7, s.Total)
	assert.Equal(t, 4, s.Executed)
	assert.Equal(t, 3, s.Remaining)
	assert.Equal(t, 3, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Blocked)
	assert.Equal(t, 2, s.NotRun)
	assert.InDelta(t, 75.0, s.Quality, 1e-9)
}

func TestBreakdown(t *testing.T) {
	root, err := Breakdown(testAxes(), testCases(), []int{1, 2})
	require.NoError(t, err)

	assert.Equal(t, "Total", root.Label)
	assert.Equal(t, 7, root.Stats.Total, "cases without values still count at the root")

	var labels []string
	for _, c := range root.Children {
		labels = append(labels, c.Label)
	}
	assert.Equal(t, []string{"Firefox", "Chrome", "Brave", "Edge"}, labels)

	firefox := root.Children[0]
	assert.Equal(t, "1=Firefox", firefox.Key)
	assert.Equal(t, 1, firefox.Depth)
	assert.Equal(t, 2, firefox.Stats.Total)
	require.Len(t, firefox.Children, 1, "case without env is left out of the env partition")
	assert.Equal(t, "1=Firefox|2=Prod", firefox.Children[0].Key)
	assert.Equal(t, 2, firefox.Children[0].Depth)

	chrome := root.Children[1]
	require.Len(t, chrome.Children, 2)
	assert.Equal(t, "Staging", chrome.Children[0].Label)
	assert.Equal(t, "Prod", chrome.Children[1].Label)
	assert.Empty(t, chrome.Children[0].Children)
}

func TestBreakdownLevels(t *testing.T) {
	tests := []struct {
		name      string
		levels    []int
		wantErr   bool
		wantFirst string
		wantDepth int
	}{
		{"empty means all axes", nil, false, "Firefox", 2},
		{"reversed order", []int{2, 1}, false, "Staging", 2},
		{"single level", []int{2}, false, "Staging", 1},
		{"unknown level", []int{3}, true, "", 0},
		{"repeated level", []int{1, 1}, true, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Breakdown(testAxes(), testCases(), tt.levels)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFirst, root.Children[0].Label)
			depth := 0
			root.Walk(func(n *Node) {
				if n.Depth > depth {
					depth = n.Depth
				}
			})
			assert.Equal(t, tt.wantDepth, depth)
		})
	}
}

func TestParseLevels(t *testing.T) {
	levels, err := ParseLevels(" 1, 2 ,")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, levels)

	levels, err = ParseLevels("")
	require.NoError(t, err)
	assert.Nil(t, levels)

	_, err = ParseLevels("1,x")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestAxisStats(t *testing.T) {
	stats := AxisStats(testAxes(), testCases())

	var keys []string
	for _, s := range stats {
		keys = append(keys, s.AxisLabel+"="+s.Value)
	}
	assert.Equal(t, []string{
		"Browser=Firefox", "Browser=Chrome", "Browser=Brave", "Browser=Edge",
		"Env=Staging", "Env=Prod",
	}, keys)

	chrome := stats[1]
	assert.Equal(t, 2, chrome.Stats.Total)
	assert.Equal(t, 100.0, chrome.Stats.Completion)
	assert.Equal(t, 50.0, chrome.Stats.Quality)

	axes := testAxes()
	axes[1].Values = append(axes[1].Values, types.AxisValue{ValueLabel: "QA", SortOrder: 3})
	stats = AxisStats(axes, testCases())
	last := stats[len(stats)-1]
	assert.Equal(t, "QA", last.Value)
	assert.Zero(t, last.Stats.Total, "defined values are listed without cases")
}

func TestMenuNodesFirstSeenOrder(t *testing.T) {
	menu := MenuNodes(testAxes(), testCases())

	var keys []string
	for _, m := range menu {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{
		"1=Chrome", "1=Chrome|2=Prod", "1=Chrome|2=Staging",
		"1=Firefox", "1=Firefox|2=Prod",
		"1=Edge", "1=Edge|2=Prod",
		"1=Brave",
	}, keys)
	assert.Equal(t, 2, menu[0].Count)
	assert.Equal(t, 1, menu[0].Depth)
	assert.Equal(t, 2, menu[1].Depth)
}

func TestSelectionAndFilter(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		status  string
		wantIDs []int64
		wantErr error
	}{
		{"overview selects all", "overview", "ALL", []int64{1, 2, 3, 4, 5, 6, 7}, nil},
		{"empty selects all", "", "", []int64{1, 2, 3, 4, 5, 6, 7}, nil},
		{"one clause", "1=Chrome", "ALL", []int64{1, 2}, nil},
		{"two clauses", "1=Chrome|2=Prod", "", []int64{1}, nil},
		{"status only", "overview", "pass", []int64{1, 3, 6}, nil},
		{"clause and status", "2=Prod", "PASS", []int64{1, 3}, nil},
		{"no match", "1=Opera", "ALL", []int64{}, nil},
		{"malformed clause", "Chrome", "ALL", nil, ErrBadSelection},
		{"bad level", "x=Chrome", "ALL", nil, ErrBadSelection},
		{"bad status", "overview", "SKIPPED", nil, types.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := ParseSelection(tt.key)
			if err == nil {
				var st types.Status
				st, err = ParseStatusFilter(tt.status)
				if err == nil {
					got := Filter(testCases(), sel, st)
					ids := []int64{}
					for _, c := range got {
						ids = append(ids, c.ID)
					}
					assert.Equal(t, tt.wantIDs, ids)
				}
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelectionKeyRoundTrip(t *testing.T) {
	sel := Selection{{Level: 1, Value: "Chrome"}, {Level: 2, Value: "a=b"}}
	parsed, err := ParseSelection(sel.Key())
	require.NoError(t, err)
	assert.Equal(t, sel, parsed)
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0, 0},
		{80, 80},
		{100.5, 100},
		{math.NaN(), DefaultThreshold},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampThreshold(tt.in))
	}
	assert.True(t, Highlighted(80.1, 80))
	assert.False(t, Highlighted(80, 80), "equal to threshold is not highlighted")
}

func TestNextToExecute(t *testing.T) {
	assert.Nil(t, NextToExecute(nil))

	cases := testCases()
	assert.Equal(t, int64(4), NextToExecute(cases).ID)

	done := []*types.RunCase{rc(1, types.StatusPass, nil), rc(2, types.StatusFail, nil)}
	assert.Equal(t, int64(1), NextToExecute(done).ID)
}

func TestBuild(t *testing.T) {
	sel, err := ParseSelection("1=Chrome")
	require.NoError(t, err)
	r, err := Build(testAxes(), testCases(), Request{Levels: []int{1}, Selection: sel, Threshold: 150})
	require.NoError(t, err)

	assert.Equal(t, 100.0, r.Threshold)
	assert.Equal(t, 7, r.Total.Total)
	assert.Len(t, r.Results, 2)
	assert.Equal(t, int64(1), r.Next.ID)
	assert.NotEmpty(t, r.Menu)
	assert.Len(t, r.AxesStats, 6)

	r, err = Build(testAxes(), testCases(), Request{Threshold: 45})
	require.NoError(t, err)
	firefox := r.Tree.Children[0]
	assert.Equal(t, 50.0, firefox.Stats.ScopeValidated)
	assert.True(t, firefox.Highlight)
	assert.False(t, r.Tree.Highlight, "3 of 7 passed is below 45 percent")

	_, err = Build(testAxes(), testCases(), Request{Levels: []int{9}})
	assert.ErrorIs(t, err, ErrUnknownLevel)
}
