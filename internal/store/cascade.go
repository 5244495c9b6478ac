package store

import (
	"context"
	"database/sql"
	"fmt"
)

// deleteRunsTx removes the runs whose column equals value, together with
// their run cases, run case values and run case attachments. column is a
// test_runs column name, never user input.
func deleteRunsTx(ctx context.Context, tx *sql.Tx, column string, value any) error {
	runCaseIDs := "SELECT rc.id FROM test_run_cases rc JOIN test_runs r ON r.id = rc.run_id WHERE r." + column + " = ?"
	stmts := []struct {
		what  string
		query string
	}{
		{"run case values", "DELETE FROM test_run_case_values WHERE run_case_id IN (" + runCaseIDs + ")"},
		{"run case attachments", "DELETE FROM attachments WHERE run_case_id IN (" + runCaseIDs + ")"},
		{"run cases", "DELETE FROM test_run_cases WHERE run_id IN (SELECT id FROM test_runs WHERE " + column + " = ?)"},
		{"runs", "DELETE FROM test_runs WHERE " + column + " = ?"},
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.query, value); err != nil {
			return fmt.Errorf("deleting %s: %w", s.what, err)
		}
	}
	return nil
}

// deleteTestBookTx removes every Test Book case, case value and axis of a
// project.
func deleteTestBookTx(ctx context.Context, tx *sql.Tx, projectID int64) error {
	stmts := []struct {
		what  string
		query string
	}{
		{"test case values", "DELETE FROM test_case_values WHERE test_case_id IN (SELECT id FROM test_cases WHERE project_id = ?)"},
		{"test cases", "DELETE FROM test_cases WHERE project_id = ?"},
		{"axis values", "DELETE FROM test_book_axis_values WHERE axis_id IN (SELECT id FROM test_book_axes WHERE project_id = ?)"},
		{"axes", "DELETE FROM test_book_axes WHERE project_id = ?"},
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.query, projectID); err != nil {
			return fmt.Errorf("deleting %s: %w", s.what, err)
		}
	}
	return nil
}

// replaceValuesTx rewrites the analytical values of one row in a values
// table (test_case_values or test_run_case_values). Empty values are not
// stored.
func replaceValuesTx(ctx context.Context, tx *sql.Tx, table, idColumn string, id int64, values map[string]string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+idColumn+" = ?", id); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	for level, label := range values {
		if label == "" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(level, "%d", &n); err != nil || n <= 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" ("+idColumn+", level_number, value_label) VALUES (?, ?, ?)",
			id, n, label,
		); err != nil {
			return fmt.Errorf("inserting %s: %w", table, err)
		}
	}
	return nil
}
