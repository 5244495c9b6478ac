package types

import "time"

// Test run states.
const (
	RunOpen   = "open"
	RunClosed = "closed"
)

// DefaultScopeThreshold is the scope-validated percentage above which a
// group is highlighted when a run has no explicit threshold.
const DefaultScopeThreshold = 80

// TestRun is an executable snapshot of a project's active Test Book cases
// for one release.
type TestRun struct {
	ID             int64     `json:"id"`
	ProjectID      int64     `json:"project_id"`
	ReleaseID      int64     `json:"release_id"`
	Name           string    `json:"name"`
	CreatedBy      int64     `json:"created_by"`
	Status         string    `json:"status"`
	ScopeThreshold float64   `json:"scope_threshold"`
	CreatedAt      time.Time `json:"created_at"`
	Summary        Summary   `json:"summary"`
}

// RunCase is one case of a run with its execution result.
type RunCase struct {
	ID               int64            `json:"test_run_case_id"`
	RunID            int64            `json:"run_id"`
	CaseNumber       int              `json:"case_number"`
	SourceCaseID     *int64           `json:"source_case_id"`
	Title            string           `json:"title"`
	Steps            string           `json:"steps"`
	ExpectedResult   string           `json:"expected_result"`
	AnalyticalValues AnalyticalValues `json:"analytical_values"`
	Attachments      []string         `json:"attachments"`
	Status           Status           `json:"status"`
	Comment          string           `json:"comment"`
	TestedAt         *time.Time       `json:"tested_at"`
	TestedBy         *int64           `json:"tested_by"`
	TesterName       string           `json:"tester_name"`
	TesterEmail      string           `json:"tester_email"`
}

// Tester returns the tester's name, falling back to the email.
func (rc *RunCase) Tester() string {
	if rc.TesterName != "" {
		return rc.TesterName
	}
	return rc.TesterEmail
}
