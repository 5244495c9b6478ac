package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// TestCaseFilter narrows a Fetch over Test Book cases.
type TestCaseFilter struct {
	ProjectID  int64
	ActiveOnly bool
	// CaseNumber selects a single case when positive.
	CaseNumber int
}

// TestCasesTable manages Test Book cases and their analytical values.
type TestCasesTable struct {
	backend *Backend
}

func hydrateTestCase(row rowScanner) (*types.TestCase, error) {
	var (
		tc          types.TestCase
		active      int
		attachments string
		createdAt   string
		updatedAt   string
	)
	if err := row.Scan(&tc.ID, &tc.ProjectID, &tc.CaseNumber, &tc.Title, &tc.Steps,
		&tc.ExpectedResult, &active, &attachments, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	tc.IsActive = active != 0
	tc.Attachments = decodeList(attachments)
	tc.CreatedAt = parseTime(createdAt)
	tc.UpdatedAt = parseTime(updatedAt)
	tc.AnalyticalValues = types.AnalyticalValues{}
	return &tc, nil
}

// fetchTestCases reads cases matching filter through q, ordered by case
// number, with their analytical values attached.
func fetchTestCases(ctx context.Context, q execer, dialect goqu.DialectWrapper, filter TestCaseFilter) ([]*types.TestCase, error) {
	where := []goqu.Expression{goqu.I("c.project_id").Eq(filter.ProjectID)}
	if filter.ActiveOnly {
		where = append(where, goqu.I("c.is_active").Eq(1))
	}
	if filter.CaseNumber > 0 {
		where = append(where, goqu.I("c.case_number").Eq(filter.CaseNumber))
	}

	ds := dialect.From(goqu.T("test_cases").As("c")).
		Select(goqu.I("c.id"), goqu.I("c.project_id"), goqu.I("c.case_number"), goqu.I("c.title"),
			goqu.I("c.steps"), goqu.I("c.expected_result"), goqu.I("c.is_active"),
			goqu.I("c.attachments"), goqu.I("c.created_at"), goqu.I("c.updated_at")).
		Where(where...).
		Order(goqu.I("c.case_number").Asc(), goqu.I("c.id").Asc())

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building test case query: %w", err)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing test cases: %w", err)
	}
	cases := []*types.TestCase{}
	for rows.Next() {
		tc, err := hydrateTestCase(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning test case: %w", err)
		}
		cases = append(cases, tc)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	values, err := loadValues(ctx, q, dialect.From(goqu.T("test_case_values").As("v")).
		Join(goqu.T("test_cases").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("v.test_case_id")))).
		Select(goqu.I("v.test_case_id"), goqu.I("v.level_number"), goqu.I("v.value_label")).
		Where(where...))
	if err != nil {
		return nil, err
	}
	for _, tc := range cases {
		tc.AnalyticalValues = valuesOrEmpty(values[tc.ID])
	}
	return cases, nil
}

// Create appends a case to the project's Test Book with the next case
// number. New cases are active.
func (tt *TestCasesTable) Create(ctx context.Context, tc *types.TestCase) error {
	return tt.CreateMany(ctx, tc.ProjectID, []*types.TestCase{tc}, nil)
}

// CreateMany appends cases to the project's Test Book in order, in one
// transaction: either every case is stored or none is. Each case gets
// projectID and the next case number. inserted, when not nil, is called
// after each row is written.
func (tt *TestCasesTable) CreateMany(ctx context.Context, projectID int64, cases []*types.TestCase, inserted func(*types.TestCase)) error {
	for _, tc := range cases {
		tc.Title = strings.TrimSpace(tc.Title)
		if tc.Title == "" {
			return types.ErrInvalidName
		}
	}
	if _, err := tt.backend.Projects().Get(ctx, projectID); err != nil {
		return err
	}
	now := tt.backend.now()
	return tt.backend.withTx(ctx, func(tx *sql.Tx) error {
		for _, tc := range cases {
			tc.ProjectID = projectID
			if err := insertTestCaseTx(ctx, tx, tc, now); err != nil {
				return err
			}
			if inserted != nil {
				inserted(tc)
			}
		}
		return nil
	})
}

func insertTestCaseTx(ctx context.Context, tx *sql.Tx, tc *types.TestCase, now time.Time) error {
	tc.IsActive = true
	tc.CreatedAt = now
	tc.UpdatedAt = now
	tc.AnalyticalValues = tc.AnalyticalValues.Clone()
	if tc.Attachments == nil {
		tc.Attachments = []string{}
	}

	var last int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(case_number), 0) FROM test_cases WHERE project_id = ?", tc.ProjectID,
	).Scan(&last); err != nil {
		return fmt.Errorf("reading last case number: %w", err)
	}
	tc.CaseNumber = last + 1

	res, err := tx.ExecContext(ctx,
		`INSERT INTO test_cases (project_id, case_number, title, steps, expected_result, is_active, attachments, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tc.ProjectID, tc.CaseNumber, tc.Title, tc.Steps, tc.ExpectedResult, boolInt(tc.IsActive),
		encodeList(tc.Attachments), formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("inserting test case: %w", err)
	}
	if tc.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading test case id: %w", err)
	}
	return replaceValuesTx(ctx, tx, "test_case_values", "test_case_id", tc.ID, tc.AnalyticalValues)
}

// Get retrieves a Test Book case by ID.
func (tt *TestCasesTable) Get(ctx context.Context, id int64) (*types.TestCase, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := tt.backend.conn()
	if err != nil {
		return nil, err
	}
	var projectID int64
	var caseNumber int
	err = db.QueryRowContext(ctx, "SELECT project_id, case_number FROM test_cases WHERE id = ?", id).
		Scan(&projectID, &caseNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting test case %d: %w", id, err)
	}
	cases, err := tt.Fetch(ctx, TestCaseFilter{ProjectID: projectID, CaseNumber: caseNumber})
	if err != nil {
		return nil, err
	}
	for _, tc := range cases {
		if tc.ID == id {
			return tc, nil
		}
	}
	return nil, types.ErrNotFound
}

// Fetch returns the cases matching filter in case-number order.
func (tt *TestCasesTable) Fetch(ctx context.Context, filter TestCaseFilter) ([]*types.TestCase, error) {
	db, err := tt.backend.conn()
	if err != nil {
		return nil, err
	}
	return fetchTestCases(ctx, db, tt.backend.dialect, filter)
}

// ListByProject returns every case of the project's Test Book.
func (tt *TestCasesTable) ListByProject(ctx context.Context, projectID int64) ([]*types.TestCase, error) {
	return tt.Fetch(ctx, TestCaseFilter{ProjectID: projectID})
}

// Update rewrites the editable fields of a case and replaces its
// analytical values. The case number and project are unchanged.
func (tt *TestCasesTable) Update(ctx context.Context, tc *types.TestCase) error {
	tc.Title = strings.TrimSpace(tc.Title)
	if tc.Title == "" {
		return types.ErrInvalidName
	}
	existing, err := tt.Get(ctx, tc.ID)
	if err != nil {
		return err
	}
	tc.ProjectID = existing.ProjectID
	tc.CaseNumber = existing.CaseNumber
	tc.CreatedAt = existing.CreatedAt
	tc.UpdatedAt = tt.backend.now()
	tc.AnalyticalValues = tc.AnalyticalValues.Clone()
	if tc.Attachments == nil {
		tc.Attachments = []string{}
	}

	return tt.backend.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE test_cases SET title = ?, steps = ?, expected_result = ?, is_active = ?, attachments = ?, updated_at = ?
			WHERE id = ?`,
			tc.Title, tc.Steps, tc.ExpectedResult, boolInt(tc.IsActive), encodeList(tc.Attachments),
			formatTime(tc.UpdatedAt), tc.ID,
		); err != nil {
			return fmt.Errorf("updating test case %d: %w", tc.ID, err)
		}
		return replaceValuesTx(ctx, tx, "test_case_values", "test_case_id", tc.ID, tc.AnalyticalValues)
	})
}

// Delete removes a case and closes the gap in case numbers. Run cases
// snapshotted from it keep their content and lose the source reference.
func (tt *TestCasesTable) Delete(ctx context.Context, id int64) error {
	tc, err := tt.Get(ctx, id)
	if err != nil {
		return err
	}
	return tt.backend.withTx(ctx, func(tx *sql.Tx) error {
		stmts := []struct {
			query string
			args  []any
		}{
			{"DELETE FROM test_case_values WHERE test_case_id = ?", []any{id}},
			{"DELETE FROM attachments WHERE test_case_id = ?", []any{id}},
			{"UPDATE test_run_cases SET source_case_id = NULL WHERE source_case_id = ?", []any{id}},
			{"DELETE FROM test_cases WHERE id = ?", []any{id}},
			{"UPDATE test_cases SET case_number = case_number - 1 WHERE project_id = ? AND case_number > ?",
				[]any{tc.ProjectID, tc.CaseNumber}},
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
				return fmt.Errorf("deleting test case %d: %w", id, err)
			}
		}
		return nil
	})
}
