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

// ProjectsTable manages projects and their members.
type ProjectsTable struct {
	backend *Backend
}

func hydrateProject(row rowScanner) (*types.Project, error) {
	var (
		p         types.Project
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// Create inserts a project and makes ownerID its owner, in one transaction.
func (pt *ProjectsTable) Create(ctx context.Context, p *types.Project, ownerID int64) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return types.ErrInvalidName
	}
	p.CreatedAt = pt.backend.now()

	return pt.backend.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO projects (name, description, created_at) VALUES (?, ?, ?)",
			p.Name, p.Description, formatTime(p.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting project: %w", err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading project id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO project_members (project_id, user_id, role, created_at) VALUES (?, ?, ?, ?)",
			p.ID, ownerID, types.RoleOwner, formatTime(p.CreatedAt),
		); err != nil {
			return fmt.Errorf("inserting owner membership: %w", err)
		}
		return nil
	})
}

// Get retrieves a project by ID.
func (pt *ProjectsTable) Get(ctx context.Context, id int64) (*types.Project, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := pt.backend.conn()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, "SELECT id, name, description, created_at FROM projects WHERE id = ?", id)
	p, err := hydrateProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting project %d: %w", id, err)
	}
	return p, nil
}

// ListForUser returns the projects userID is a member of, newest first.
func (pt *ProjectsTable) ListForUser(ctx context.Context, userID int64) ([]*types.Project, error) {
	ds := pt.backend.dialect.
		From(goqu.T("projects").As("p")).
		Join(goqu.T("project_members").As("m"), goqu.On(goqu.I("m.project_id").Eq(goqu.I("p.id")))).
		Select(goqu.I("p.id"), goqu.I("p.name"), goqu.I("p.description"), goqu.I("p.created_at")).
		Where(goqu.I("m.user_id").Eq(userID)).
		Order(goqu.I("p.created_at").Desc(), goqu.I("p.id").Desc())

	rows, err := pt.backend.query(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []*types.Project{}
	for rows.Next() {
		p, err := hydrateProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// IsMember reports whether userID belongs to projectID.
func (pt *ProjectsTable) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	db, err := pt.backend.conn()
	if err != nil {
		return false, err
	}
	var one int
	err = db.QueryRowContext(ctx,
		"SELECT 1 FROM project_members WHERE project_id = ? AND user_id = ?", projectID, userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return true, nil
}

// AddMember assigns the user with the given email to the project. An
// empty role means member; roles other than owner and member are rejected
// with ErrInvalidData. Returns ErrNotFound if no such user exists and
// ErrAlreadyMember if the user is already assigned.
func (pt *ProjectsTable) AddMember(ctx context.Context, projectID int64, email, role string) (*types.Member, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case "":
		role = types.RoleMember
	case types.RoleMember, types.RoleOwner:
	default:
		return nil, fmt.Errorf("%w: role %q (want %s or %s)", types.ErrInvalidData, role, types.RoleOwner, types.RoleMember)
	}
	if _, err := pt.Get(ctx, projectID); err != nil {
		return nil, err
	}
	user, err := pt.backend.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	member, err := pt.IsMember(ctx, projectID, user.ID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, types.ErrAlreadyMember
	}

	db, err := pt.backend.conn()
	if err != nil {
		return nil, err
	}
	now := pt.backend.now()
	if _, err := db.ExecContext(ctx,
		"INSERT INTO project_members (project_id, user_id, role, created_at) VALUES (?, ?, ?, ?)",
		projectID, user.ID, role, formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("inserting membership: %w", err)
	}
	return &types.Member{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      role,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: now,
	}, nil
}

// Members lists the members of a project, owners first.
func (pt *ProjectsTable) Members(ctx context.Context, projectID int64) ([]*types.Member, error) {
	ds := pt.backend.dialect.
		From(goqu.T("project_members").As("m")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("m.user_id")))).
		Select(goqu.I("m.project_id"), goqu.I("m.user_id"), goqu.I("m.role"), goqu.I("u.email"), goqu.I("u.name"), goqu.I("m.created_at")).
		Where(goqu.I("m.project_id").Eq(projectID)).
		Order(goqu.I("m.role").Desc(), goqu.I("u.email").Asc())

	rows, err := pt.backend.query(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	members := []*types.Member{}
	for rows.Next() {
		var (
			m         types.Member
			createdAt string
		)
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.Email, &m.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		members = append(members, &m)
	}
	return members, rows.Err()
}

// Delete removes a project and everything it owns.
func (pt *ProjectsTable) Delete(ctx context.Context, id int64) error {
	if _, err := pt.Get(ctx, id); err != nil {
		return err
	}
	return pt.backend.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteRunsTx(ctx, tx, "project_id", id); err != nil {
			return err
		}
		if err := deleteTestBookTx(ctx, tx, id); err != nil {
			return err
		}
		for _, q := range []string{
			"DELETE FROM releases WHERE project_id = ?",
			"DELETE FROM attachments WHERE project_id = ?",
			"DELETE FROM project_members WHERE project_id = ?",
			"DELETE FROM projects WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("deleting project %d: %w", id, err)
			}
		}
		return nil
	})
}
