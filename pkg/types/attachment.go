package types

import "time"

// Attachment is an uploaded file linked to a Test Book case or a run case.
type Attachment struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	TestCaseID  *int64    `json:"test_case_id"`
	RunCaseID   *int64    `json:"test_run_case_id"`
	FileName    string    `json:"filename"`
	StoredName  string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
