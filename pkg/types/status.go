package types

import "strings"

// Status is the execution result of a single run case.
type Status string

// Run case statuses. NOT_RUN is the status of every freshly snapshotted case.
const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusBlocked Status = "BLOCKED"
	StatusNotRun  Status = "NOT_RUN"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPass, StatusFail, StatusBlocked, StatusNotRun}

// ParseStatus converts s to a Status. Surrounding whitespace and letter case
// are ignored. Returns ErrInvalidStatus for anything outside Statuses.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPass, StatusFail, StatusBlocked, StatusNotRun:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Executed reports whether the status counts as executed. Only PASS and FAIL
// do; a BLOCKED case still has to be run.
func (s Status) Executed() bool {
	return s == StatusPass || s == StatusFail
}

// Summary counts run cases per status.
type Summary struct {
	Total   int `json:"total"`
	Pass    int `json:"pass"`
	Fail    int `json:"fail"`
	Blocked int `json:"blocked"`
	NotRun  int `json:"not_run"`
}

// Add counts one case with the given status.
func (s *Summary) Add(st Status) {
	s.AddN(st, 1)
}

// AddN counts n cases with the given status.
func (s *Summary) AddN(st Status, n int) {
	s.Total += n
	switch st {
	case StatusPass:
		s.Pass += n
	case StatusFail:
		s.Fail += n
	case StatusBlocked:
		s.Blocked += n
	default:
		s.NotRun += n
	}
}

// Executed returns the number of PASS and FAIL cases.
func (s Summary) Executed() int {
	return s.Pass + s.Fail
}
