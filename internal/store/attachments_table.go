package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// AttachmentsTable records uploaded files. File content lives in the
// attachments storage; rows only carry metadata and the stored name.
type AttachmentsTable struct {
	backend *Backend
}

func hydrateAttachment(row rowScanner) (*types.Attachment, error) {
	var (
		a          types.Attachment
		testCaseID sql.NullInt64
		runCaseID  sql.NullInt64
		createdAt  string
	)
	if err := row.Scan(&a.ID, &a.ProjectID, &testCaseID, &runCaseID, &a.FileName, &a.StoredName,
		&a.ContentType, &a.Size, &a.UploadedBy, &createdAt); err != nil {
		return nil, err
	}
	a.TestCaseID = nullInt64(testCaseID)
	a.RunCaseID = nullInt64(runCaseID)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (at *AttachmentsTable) selectDataset() *goqu.SelectDataset {
	return at.backend.dialect.From("attachments").
		Select("id", "project_id", "test_case_id", "run_case_id", "file_name", "stored_name",
			"content_type", "size", "uploaded_by", "created_at")
}

// Create records an uploaded file.
func (at *AttachmentsTable) Create(ctx context.Context, a *types.Attachment) error {
	if a.ProjectID <= 0 || a.StoredName == "" {
		return types.ErrInvalidData
	}
	db, err := at.backend.conn()
	if err != nil {
		return err
	}
	a.CreatedAt = at.backend.now()
	res, err := db.ExecContext(ctx,
		`INSERT INTO attachments (project_id, test_case_id, run_case_id, file_name, stored_name, content_type, size, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ProjectID, ptrArg(a.TestCaseID), ptrArg(a.RunCaseID), a.FileName, a.StoredName,
		a.ContentType, a.Size, a.UploadedBy, formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting attachment: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading attachment id: %w", err)
	}
	return nil
}

// Get retrieves an attachment record by ID.
func (at *AttachmentsTable) Get(ctx context.Context, id int64) (*types.Attachment, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	list, err := at.fetch(ctx, goqu.C("id").Eq(id))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, types.ErrNotFound
	}
	return list[0], nil
}

// ListForRunCase returns the attachments uploaded on a run case.
func (at *AttachmentsTable) ListForRunCase(ctx context.Context, runCaseID int64) ([]*types.Attachment, error) {
	return at.fetch(ctx, goqu.C("run_case_id").Eq(runCaseID))
}

// ListForTestCase returns the attachments uploaded on a Test Book case.
func (at *AttachmentsTable) ListForTestCase(ctx context.Context, testCaseID int64) ([]*types.Attachment, error) {
	return at.fetch(ctx, goqu.C("test_case_id").Eq(testCaseID))
}

func (at *AttachmentsTable) fetch(ctx context.Context, where goqu.Expression) ([]*types.Attachment, error) {
	rows, err := at.backend.query(ctx, at.selectDataset().Where(where).Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	defer rows.Close()

	list := []*types.Attachment{}
	for rows.Next() {
		a, err := hydrateAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
