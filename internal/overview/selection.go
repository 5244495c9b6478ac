package overview

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// SelectAll is the selection key of the whole run.
const SelectAll = "overview"

// StatusAll is the status filter that keeps every case.
const StatusAll = "ALL"

// ErrBadSelection is returned for a malformed selection key.
var ErrBadSelection = errors.New("malformed selection")

// Clause requires a case to carry Value at Level.
type Clause struct {
	Level int
	Value string
}

// Selection is a conjunction of clauses. An empty selection matches all.
type Selection []Clause

// Key renders the selection as "1=Chrome|2=Prod".
func (s Selection) Key() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = strconv.Itoa(c.Level) + "=" + c.Value
	}
	return strings.Join(parts, "|")
}

// Matches reports whether c satisfies every clause.
func (s Selection) Matches(c *types.RunCase) bool {
	for _, cl := range s {
		if c.AnalyticalValues.Value(cl.Level) != cl.Value {
			return false
		}
	}
	return true
}

// ParseSelection reads a selection key. "" and "overview" select all.
func ParseSelection(key string) (Selection, error) {
	key = strings.TrimSpace(key)
	if key == "" || key == SelectAll {
		return nil, nil
	}
	var sel Selection
	for _, part := range strings.Split(key, "|") {
		level, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBadSelection, part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(level))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: level %q", ErrBadSelection, level)
		}
		sel = append(sel, Clause{Level: n, Value: value})
	}
	return sel, nil
}

// ParseStatusFilter reads a status filter. "" and "ALL" keep every case
// and yield the empty status.
func ParseStatusFilter(s string) (types.Status, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, StatusAll) {
		return "", nil
	}
	return types.ParseStatus(s)
}

// Filter returns the cases matching the selection and, when status is not
// empty, carrying that status. Order is preserved.
func Filter(cases []*types.RunCase, sel Selection, status types.Status) []*types.RunCase {
	out := []*types.RunCase{}
	for _, c := range cases {
		if status != "" && c.Status != status {
			continue
		}
		if !sel.Matches(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}
