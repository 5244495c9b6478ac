package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

const userColumns = "id, email, name, password_hash, google_subject, created_at"

// UsersTable reads and writes accounts.
type UsersTable struct {
	backend *Backend
}

func hydrateUser(row rowScanner) (*types.User, error) {
	var (
		u         types.User
		subject   sql.NullString
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &subject, &createdAt); err != nil {
		return nil, err
	}
	u.GoogleSubject = subject.String
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// Create inserts a user. The email must already be normalized.
// Returns ErrDuplicateEmail if the email is taken.
func (ut *UsersTable) Create(ctx context.Context, u *types.User) error {
	if u.Email == "" {
		return types.ErrInvalidData
	}
	db, err := ut.backend.conn()
	if err != nil {
		return err
	}

	var exists int
	err = db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE email = ?", u.Email).Scan(&exists)
	if err == nil {
		return types.ErrDuplicateEmail
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking email uniqueness: %w", err)
	}

	u.CreatedAt = ut.backend.now()
	var subject any
	if u.GoogleSubject != "" {
		subject = u.GoogleSubject
	}
	res, err := db.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, google_subject, created_at) VALUES (?, ?, ?, ?, ?)",
		u.Email, u.Name, u.PasswordHash, subject, formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}
	return nil
}

// Get retrieves a user by ID.
func (ut *UsersTable) Get(ctx context.Context, id int64) (*types.User, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	return ut.getBy(ctx, "id", id)
}

// GetByEmail retrieves a user by normalized email.
func (ut *UsersTable) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	return ut.getBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// GetByGoogleSubject retrieves the user linked to a Google account.
func (ut *UsersTable) GetByGoogleSubject(ctx context.Context, subject string) (*types.User, error) {
	if subject == "" {
		return nil, types.ErrNotFound
	}
	return ut.getBy(ctx, "google_subject", subject)
}

func (ut *UsersTable) getBy(ctx context.Context, column string, value any) (*types.User, error) {
	db, err := ut.backend.conn()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value)
	u, err := hydrateUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting user by %s: %w", column, err)
	}
	return u, nil
}

// LinkGoogle attaches a Google subject to an existing user.
func (ut *UsersTable) LinkGoogle(ctx context.Context, id int64, subject string) error {
	db, err := ut.backend.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, "UPDATE users SET google_subject = ? WHERE id = ?", subject, id)
	if err != nil {
		return fmt.Errorf("linking google account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound
	}
	return nil
}
