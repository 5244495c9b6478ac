package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/tnr/internal/overview"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

const runColumns = "id, project_id, release_id, name, created_by, status, scope_threshold, created_at"

// RunsTable manages test runs.
type RunsTable struct {
	backend *Backend
}

func hydrateRun(row rowScanner) (*types.TestRun, error) {
	var (
		r         types.TestRun
		createdAt string
	)
	if err := row.Scan(&r.ID, &r.ProjectID, &r.ReleaseID, &r.Name, &r.CreatedBy,
		&r.Status, &r.ScopeThreshold, &createdAt); err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// Create snapshots every active Test Book case of the project into a new
// run for the release. Run cases start as NOT_RUN and are numbered 1..n in
// Test Book order. The release must belong to the project.
func (rt *RunsTable) Create(ctx context.Context, run *types.TestRun) error {
	run.Name = strings.TrimSpace(run.Name)
	if run.Name == "" {
		return types.ErrInvalidName
	}
	release, err := rt.backend.Releases().Get(ctx, run.ReleaseID)
	if err != nil {
		return err
	}
	if release.ProjectID != run.ProjectID {
		return fmt.Errorf("%w: release %d does not belong to project %d", types.ErrInvalidData, run.ReleaseID, run.ProjectID)
	}

	run.Status = types.RunOpen
	run.ScopeThreshold = types.DefaultScopeThreshold
	run.CreatedAt = rt.backend.now()
	run.Summary = types.Summary{}

	return rt.backend.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO test_runs (project_id, release_id, name, created_by, status, scope_threshold, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			run.ProjectID, run.ReleaseID, run.Name, run.CreatedBy, run.Status, run.ScopeThreshold, formatTime(run.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		if run.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading run id: %w", err)
		}

		cases, err := fetchTestCases(ctx, tx, rt.backend.dialect, TestCaseFilter{ProjectID: run.ProjectID, ActiveOnly: true})
		if err != nil {
			return err
		}
		for i, tc := range cases {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO test_run_cases (run_id, case_number, source_case_id, title, steps, expected_result, attachments, status, comment)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, i+1, tc.ID, tc.Title, tc.Steps, tc.ExpectedResult, encodeList(tc.Attachments), types.StatusNotRun, "",
			)
			if err != nil {
				return fmt.Errorf("snapshotting case %d: %w", tc.CaseNumber, err)
			}
			rcID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("reading run case id: %w", err)
			}
			if err := replaceValuesTx(ctx, tx, "test_run_case_values", "run_case_id", rcID, tc.AnalyticalValues); err != nil {
				return err
			}
			run.Summary.Add(types.StatusNotRun)
		}
		return nil
	})
}

// Get retrieves a run with its status summary.
func (rt *RunsTable) Get(ctx context.Context, id int64) (*types.TestRun, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := rt.backend.conn()
	if err != nil {
		return nil, err
	}
	run, err := hydrateRun(db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM test_runs WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting run %d: %w", id, err)
	}
	summaries, err := rt.summaries(ctx, goqu.I("r.id").Eq(id))
	if err != nil {
		return nil, err
	}
	run.Summary = summaries[id]
	return run, nil
}

// ListByRelease returns the runs of a release, newest first, each with its
// status summary.
func (rt *RunsTable) ListByRelease(ctx context.Context, releaseID int64) ([]*types.TestRun, error) {
	rows, err := rt.backend.query(ctx, rt.backend.dialect.From("test_runs").
		Select("id", "project_id", "release_id", "name", "created_by", "status", "scope_threshold", "created_at").
		Where(goqu.C("release_id").Eq(releaseID)).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()))
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	runs := []*types.TestRun{}
	for rows.Next() {
		r, err := hydrateRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summaries, err := rt.summaries(ctx, goqu.I("r.release_id").Eq(releaseID))
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		r.Summary = summaries[r.ID]
	}
	return runs, nil
}

// summaries counts run cases per status for the runs matching where.
func (rt *RunsTable) summaries(ctx context.Context, where goqu.Expression) (map[int64]types.Summary, error) {
	rows, err := rt.backend.query(ctx, rt.backend.dialect.From(goqu.T("test_run_cases").As("rc")).
		Join(goqu.T("test_runs").As("r"), goqu.On(goqu.I("r.id").Eq(goqu.I("rc.run_id")))).
		Select(goqu.I("rc.run_id"), goqu.I("rc.status"), goqu.COUNT(goqu.Star())).
		Where(where).
		GroupBy(goqu.I("rc.run_id"), goqu.I("rc.status")))
	if err != nil {
		return nil, fmt.Errorf("summarizing runs: %w", err)
	}
	defer rows.Close()

	out := map[int64]types.Summary{}
	for rows.Next() {
		var (
			runID  int64
			status string
			n      int
		)
		if err := rows.Scan(&runID, &status, &n); err != nil {
			return nil, fmt.Errorf("scanning run summary: %w", err)
		}
		s := out[runID]
		s.AddN(types.Status(status), n)
		out[runID] = s
	}
	return out, rows.Err()
}

// Delete removes a run with its cases, values and attachment records.
func (rt *RunsTable) Delete(ctx context.Context, id int64) error {
	if _, err := rt.Get(ctx, id); err != nil {
		return err
	}
	return rt.backend.withTx(ctx, func(tx *sql.Tx) error {
		return deleteRunsTx(ctx, tx, "id", id)
	})
}

// SetThreshold stores the scope-validated highlight threshold of a run,
// clamped to 0..100, and returns the stored value.
func (rt *RunsTable) SetThreshold(ctx context.Context, id int64, threshold float64) (float64, error) {
	if _, err := rt.Get(ctx, id); err != nil {
		return 0, err
	}
	db, err := rt.backend.conn()
	if err != nil {
		return 0, err
	}
	threshold = overview.ClampThreshold(threshold)
	if _, err := db.ExecContext(ctx, "UPDATE test_runs SET scope_threshold = ? WHERE id = ?", threshold, id); err != nil {
		return 0, fmt.Errorf("updating threshold of run %d: %w", id, err)
	}
	return threshold, nil
}

// SetStatus opens or closes a run.
func (rt *RunsTable) SetStatus(ctx context.Context, id int64, status string) error {
	if status != types.RunOpen && status != types.RunClosed {
		return fmt.Errorf("%w: run status %q", types.ErrInvalidData, status)
	}
	if _, err := rt.Get(ctx, id); err != nil {
		return err
	}
	db, err := rt.backend.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "UPDATE test_runs SET status = ? WHERE id = ?", status, id); err != nil {
		return fmt.Errorf("updating status of run %d: %w", id, err)
	}
	return nil
}
