package overview

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// ErrUnknownLevel is returned for a level number no axis carries.
var ErrUnknownLevel = errors.New("unknown axis level")

// Node is one group of the breakdown tree. The root has depth 0, an empty
// key and the grand total.
type Node struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Depth     int     `json:"depth"`
	Level     int     `json:"level"`
	Value     string  `json:"value"`
	Stats     Stats   `json:"stats"`
	Highlight bool    `json:"highlight"`
	Children  []*Node `json:"children"`
}

// Walk visits n and its descendants depth first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// mark sets Highlight on every node above threshold.
func (n *Node) mark(threshold float64) {
	n.Walk(func(x *Node) {
		x.Highlight = Highlighted(x.Stats.ScopeValidated, threshold)
	})
}

// axisIndex maps level numbers to axes.
func axisIndex(axes []*types.Axis) map[int]*types.Axis {
	idx := make(map[int]*types.Axis, len(axes))
	for _, a := range axes {
		idx[a.LevelNumber] = a
	}
	return idx
}

// ResolveLevels validates levels against the axes. An empty list means
// every axis in level order. A level may appear only once.
func ResolveLevels(axes []*types.Axis, levels []int) ([]int, error) {
	if len(levels) == 0 {
		all := make([]int, 0, len(axes))
		for _, a := range axes {
			all = append(all, a.LevelNumber)
		}
		sort.Ints(all)
		return all, nil
	}
	idx := axisIndex(axes)
	seen := make(map[int]bool, len(levels))
	for _, l := range levels {
		if idx[l] == nil {
			return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, l)
		}
		if seen[l] {
			return nil, fmt.Errorf("%w: %d given twice", ErrUnknownLevel, l)
		}
		seen[l] = true
	}
	return levels, nil
}

// ParseLevels reads a comma separated level list such as "1,2". Blank
// input yields nil.
func ParseLevels(s string) ([]int, error) {
	var levels []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, part)
		}
		levels = append(levels, n)
	}
	return levels, nil
}

// Breakdown builds the grouping tree of cases by the given levels.
func Breakdown(axes []*types.Axis, cases []*types.RunCase, levels []int) (*Node, error) {
	levels, err := ResolveLevels(axes, levels)
	if err != nil {
		return nil, err
	}
	root := &Node{Label: "Total", Stats: StatsOf(cases)}
	root.Children = partition(axisIndex(axes), cases, levels, nil, 1)
	return root, nil
}

func partition(idx map[int]*types.Axis, cases []*types.RunCase, levels []int, path []Clause, depth int) []*Node {
	if len(levels) == 0 {
		return []*Node{}
	}
	level := levels[0]
	axis := idx[level]

	groups := map[string][]*types.RunCase{}
	for _, c := range cases {
		v := c.AnalyticalValues.Value(level)
		if v == "" {
			continue
		}
		groups[v] = append(groups[v], c)
	}

	values := make([]string, 0, len(groups))
	for v := range groups {
		values = append(values, v)
	}
	SortValues(axis, values)

	nodes := make([]*Node, 0, len(values))
	for _, v := range values {
		p := append(append([]Clause(nil), path...), Clause{Level: level, Value: v})
		n := &Node{
			Key:   Selection(p).Key(),
			Label: v,
			Depth: depth,
			Level: level,
			Value: v,
			Stats: StatsOf(groups[v]),
		}
		n.Children = partition(idx, groups[v], levels[1:], p, depth+1)
		nodes = append(nodes, n)
	}
	return nodes
}

// SortValues orders labels by their sort order on axis. Labels the axis
// does not define go last, alphabetically.
func SortValues(axis *types.Axis, values []string) {
	sort.SliceStable(values, func(i, j int) bool {
		pi, pj := 0, 0
		if axis != nil {
			pi, pj = axis.Position(values[i]), axis.Position(values[j])
		}
		switch {
		case pi > 0 && pj > 0:
			return pi < pj
		case pi > 0:
			return true
		case pj > 0:
			return false
		}
		return values[i] < values[j]
	})
}

// AxisValueStats are the stats of the cases carrying one value of one axis.
type AxisValueStats struct {
	Level     int    `json:"level"`
	AxisLabel string `json:"axis_label"`
	Value     string `json:"value"`
	Stats     Stats  `json:"stats"`
	Highlight bool   `json:"highlight"`
}

// AxisStats returns flat per-value stats in axis order, then value order.
// Every defined value is listed even without cases; values only found on
// cases follow the defined ones.
func AxisStats(axes []*types.Axis, cases []*types.RunCase) []AxisValueStats {
	ordered := append([]*types.Axis(nil), axes...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].LevelNumber < ordered[j].LevelNumber })

	out := []AxisValueStats{}
	for _, a := range ordered {
		groups := map[string][]*types.RunCase{}
		for _, c := range cases {
			if v := c.AnalyticalValues.Value(a.LevelNumber); v != "" {
				groups[v] = append(groups[v], c)
			}
		}
		values := make([]string, 0, len(a.Values)+len(groups))
		for _, v := range a.Values {
			values = append(values, v.ValueLabel)
		}
		var extra []string
		for v := range groups {
			if a.Position(v) == 0 {
				extra = append(extra, v)
			}
		}
		sort.Strings(extra)
		values = append(values, extra...)

		for _, v := range values {
			out = append(out, AxisValueStats{
				Level:     a.LevelNumber,
				AxisLabel: a.Label,
				Value:     v,
				Stats:     StatsOf(groups[v]),
			})
		}
	}
	return out
}

// MenuNode is an entry of the run navigation menu.
type MenuNode struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Depth int    `json:"depth"`
	Level int    `json:"level"`
	Count int    `json:"count"`
}

// MenuNodes lists navigation entries depth first over every axis in level
// order. Siblings appear in the order their value is first seen among the
// cases.
func MenuNodes(axes []*types.Axis, cases []*types.RunCase) []MenuNode {
	levels, _ := ResolveLevels(axes, nil)
	out := []MenuNode{}
	var walk func(cases []*types.RunCase, levels []int, path []Clause)
	walk = func(cases []*types.RunCase, levels []int, path []Clause) {
		if len(levels) == 0 {
			return
		}
		level := levels[0]
		var order []string
		groups := map[string][]*types.RunCase{}
		for _, c := range cases {
			v := c.AnalyticalValues.Value(level)
			if v == "" {
				continue
			}
			if _, ok := groups[v]; !ok {
				order = append(order, v)
			}
			groups[v] = append(groups[v], c)
		}
		for _, v := range order {
			p := append(append([]Clause(nil), path...), Clause{Level: level, Value: v})
			out = append(out, MenuNode{
				Key:   Selection(p).Key(),
				Label: v,
				Depth: len(p),
				Level: level,
				Count: len(groups[v]),
			})
			walk(groups[v], levels[1:], p)
		}
	}
	walk(cases, levels, nil)
	return out
}
