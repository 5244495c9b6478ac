package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// RunCaseUpdate carries the editable content of a run case. A nil Title
// leaves the title unchanged.
type RunCaseUpdate struct {
	Title            *string
	Steps            string
	ExpectedResult   string
	AnalyticalValues types.AnalyticalValues
	Attachments      []string
}

// RunCasesTable manages the cases of test runs.
type RunCasesTable struct {
	backend *Backend
}

func hydrateRunCase(row rowScanner) (*types.RunCase, error) {
	var (
		rc          types.RunCase
		source      sql.NullInt64
		attachments string
		status      string
		testedAt    sql.NullString
		testedBy    sql.NullInt64
		name        sql.NullString
		email       sql.NullString
	)
	if err := row.Scan(&rc.ID, &rc.RunID, &rc.CaseNumber, &source, &rc.Title, &rc.Steps,
		&rc.ExpectedResult, &attachments, &status, &rc.Comment, &testedAt, &testedBy,
		&name, &email); err != nil {
		return nil, err
	}
	rc.SourceCaseID = nullInt64(source)
	rc.Attachments = decodeList(attachments)
	rc.Status = types.Status(status)
	rc.TestedAt = parseNullTime(testedAt)
	rc.TestedBy = nullInt64(testedBy)
	rc.TesterName = name.String
	rc.TesterEmail = email.String
	rc.AnalyticalValues = types.AnalyticalValues{}
	return &rc, nil
}

// fetchRunCases reads the run cases matching where, ordered by case
// number, with tester identity and analytical values. where may refer to
// the run case table as rc.
func fetchRunCases(ctx context.Context, q execer, dialect goqu.DialectWrapper, where goqu.Expression) ([]*types.RunCase, error) {
	ds := dialect.From(goqu.T("test_run_cases").As("rc")).
		LeftJoin(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("rc.tested_by")))).
		Select(goqu.I("rc.id"), goqu.I("rc.run_id"), goqu.I("rc.case_number"), goqu.I("rc.source_case_id"),
			goqu.I("rc.title"), goqu.I("rc.steps"), goqu.I("rc.expected_result"), goqu.I("rc.attachments"),
			goqu.I("rc.status"), goqu.I("rc.comment"), goqu.I("rc.tested_at"), goqu.I("rc.tested_by"),
			goqu.I("u.name"), goqu.I("u.email")).
		Where(where).
		Order(goqu.I("rc.case_number").Asc(), goqu.I("rc.id").Asc())

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building run case query: %w", err)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing run cases: %w", err)
	}
	cases := []*types.RunCase{}
	for rows.Next() {
		rc, err := hydrateRunCase(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning run case: %w", err)
		}
		cases = append(cases, rc)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	values, err := loadValues(ctx, q, dialect.From(goqu.T("test_run_case_values").As("v")).
		Join(goqu.T("test_run_cases").As("rc"), goqu.On(goqu.I("rc.id").Eq(goqu.I("v.run_case_id")))).
		Select(goqu.I("v.run_case_id"), goqu.I("v.level_number"), goqu.I("v.value_label")).
		Where(where))
	if err != nil {
		return nil, err
	}
	for _, rc := range cases {
		rc.AnalyticalValues = valuesOrEmpty(values[rc.ID])
	}
	return cases, nil
}

// ListByRun returns the cases of a run in case-number order.
func (rct *RunCasesTable) ListByRun(ctx context.Context, runID int64) ([]*types.RunCase, error) {
	db, err := rct.backend.conn()
	if err != nil {
		return nil, err
	}
	return fetchRunCases(ctx, db, rct.backend.dialect, goqu.I("rc.run_id").Eq(runID))
}

// Get retrieves a run case by ID.
func (rct *RunCasesTable) Get(ctx context.Context, id int64) (*types.RunCase, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := rct.backend.conn()
	if err != nil {
		return nil, err
	}
	cases, err := fetchRunCases(ctx, db, rct.backend.dialect, goqu.I("rc.id").Eq(id))
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, types.ErrNotFound
	}
	return cases[0], nil
}

// ProjectID resolves the project owning a run case.
func (rct *RunCasesTable) ProjectID(ctx context.Context, id int64) (int64, error) {
	if id <= 0 {
		return 0, types.ErrInvalidID
	}
	db, err := rct.backend.conn()
	if err != nil {
		return 0, err
	}
	var projectID int64
	err = db.QueryRowContext(ctx,
		"SELECT r.project_id FROM test_run_cases rc JOIN test_runs r ON r.id = rc.run_id WHERE rc.id = ?", id,
	).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, types.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolving project of run case %d: %w", id, err)
	}
	return projectID, nil
}

// SetResult records the status and comment of a run case. When
// touchExecution is set the case is stamped with the current time and
// userID as tester; otherwise the previous stamp is kept.
func (rct *RunCasesTable) SetResult(ctx context.Context, id int64, status types.Status, comment string, userID int64, touchExecution bool) error {
	if _, err := types.ParseStatus(string(status)); err != nil {
		return err
	}
	if _, err := rct.Get(ctx, id); err != nil {
		return err
	}
	db, err := rct.backend.conn()
	if err != nil {
		return err
	}
	if touchExecution {
		_, err = db.ExecContext(ctx,
			"UPDATE test_run_cases SET status = ?, comment = ?, tested_at = ?, tested_by = ? WHERE id = ?",
			status, comment, formatTime(rct.backend.now()), userID, id,
		)
	} else {
		_, err = db.ExecContext(ctx,
			"UPDATE test_run_cases SET status = ?, comment = ? WHERE id = ?",
			status, comment, id,
		)
	}
	if err != nil {
		return fmt.Errorf("recording result of run case %d: %w", id, err)
	}
	return nil
}

// Insert adds a blank NOT_RUN case to a run at the 1-based insertIndex,
// clamped to 1..n+1, shifting the following cases down.
func (rct *RunCasesTable) Insert(ctx context.Context, runID int64, insertIndex int) (*types.RunCase, error) {
	if _, err := rct.backend.Runs().Get(ctx, runID); err != nil {
		return nil, err
	}
	var id int64
	err := rct.backend.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM test_run_cases WHERE run_id = ?", runID).Scan(&n); err != nil {
			return fmt.Errorf("counting run cases: %w", err)
		}
		if insertIndex < 1 {
			insertIndex = 1
		}
		if insertIndex > n+1 {
			insertIndex = n + 1
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE test_run_cases SET case_number = case_number + 1 WHERE run_id = ? AND case_number >= ?",
			runID, insertIndex,
		); err != nil {
			return fmt.Errorf("shifting run cases: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO test_run_cases (run_id, case_number, title, steps, expected_result, attachments, status, comment)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, insertIndex, "", "", "", encodeList(nil), types.StatusNotRun, "",
		)
		if err != nil {
			return fmt.Errorf("inserting run case: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return rct.Get(ctx, id)
}

// Update rewrites the content of a run case and replaces its analytical
// values. The result and execution stamp are untouched.
func (rct *RunCasesTable) Update(ctx context.Context, id int64, upd RunCaseUpdate) error {
	existing, err := rct.Get(ctx, id)
	if err != nil {
		return err
	}
	title := existing.Title
	if upd.Title != nil {
		title = *upd.Title
	}
	return rct.backend.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE test_run_cases SET title = ?, steps = ?, expected_result = ?, attachments = ? WHERE id = ?",
			title, upd.Steps, upd.ExpectedResult, encodeList(upd.Attachments), id,
		); err != nil {
			return fmt.Errorf("updating run case %d: %w", id, err)
		}
		return replaceValuesTx(ctx, tx, "test_run_case_values", "run_case_id", id, upd.AnalyticalValues)
	})
}

// Delete removes a run case and closes the gap in case numbers.
func (rct *RunCasesTable) Delete(ctx context.Context, id int64) error {
	rc, err := rct.Get(ctx, id)
	if err != nil {
		return err
	}
	return rct.backend.withTx(ctx, func(tx *sql.Tx) error {
		stmts := []struct {
			query string
			args  []any
		}{
			{"DELETE FROM test_run_case_values WHERE run_case_id = ?", []any{id}},
			{"DELETE FROM attachments WHERE run_case_id = ?", []any{id}},
			{"DELETE FROM test_run_cases WHERE id = ?", []any{id}},
			{"UPDATE test_run_cases SET case_number = case_number - 1 WHERE run_id = ? AND case_number > ?",
				[]any{rc.RunID, rc.CaseNumber}},
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
				return fmt.Errorf("deleting run case %d: %w", id, err)
			}
		}
		return nil
	})
}
