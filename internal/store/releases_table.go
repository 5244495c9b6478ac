package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// ReleasesTable manages releases.
type ReleasesTable struct {
	backend *Backend
}

func hydrateRelease(row rowScanner) (*types.Release, error) {
	var (
		r         types.Release
		createdAt string
	)
	if err := row.Scan(&r.ID, &r.ProjectID, &r.Version, &r.Notes, &createdAt); err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// Create inserts a release into an existing project.
func (rt *ReleasesTable) Create(ctx context.Context, r *types.Release) error {
	r.Version = strings.TrimSpace(r.Version)
	if r.Version == "" {
		return types.ErrInvalidName
	}
	if _, err := rt.backend.Projects().Get(ctx, r.ProjectID); err != nil {
		return err
	}
	db, err := rt.backend.conn()
	if err != nil {
		return err
	}
	r.CreatedAt = rt.backend.now()
	res, err := db.ExecContext(ctx,
		"INSERT INTO releases (project_id, version, notes, created_at) VALUES (?, ?, ?, ?)",
		r.ProjectID, r.Version, r.Notes, formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting release: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading release id: %w", err)
	}
	return nil
}

// Get retrieves a release by ID.
func (rt *ReleasesTable) Get(ctx context.Context, id int64) (*types.Release, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := rt.backend.conn()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx,
		"SELECT id, project_id, version, notes, created_at FROM releases WHERE id = ?", id)
	r, err := hydrateRelease(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting release %d: %w", id, err)
	}
	return r, nil
}

// ListByProject returns a project's releases, newest first.
func (rt *ReleasesTable) ListByProject(ctx context.Context, projectID int64) ([]*types.Release, error) {
	ds := rt.backend.dialect.From("releases").
		Select("id", "project_id", "version", "notes", "created_at").
		Where(goqu.C("project_id").Eq(projectID)).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())

	rows, err := rt.backend.query(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("listing releases: %w", err)
	}
	defer rows.Close()

	releases := []*types.Release{}
	for rows.Next() {
		r, err := hydrateRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning release: %w", err)
		}
		releases = append(releases, r)
	}
	return releases, rows.Err()
}

// Delete removes a release with its runs, run cases and their
// attachment records.
func (rt *ReleasesTable) Delete(ctx context.Context, id int64) error {
	if _, err := rt.Get(ctx, id); err != nil {
		return err
	}
	return rt.backend.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteRunsTx(ctx, tx, "release_id", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM releases WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting release %d: %w", id, err)
		}
		return nil
	})
}
