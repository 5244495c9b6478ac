package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// SessionsTable stores login sessions keyed by token hash.
type SessionsTable struct {
	backend *Backend
}

// Create stores a session.
func (st *SessionsTable) Create(ctx context.Context, s *types.Session) error {
	db, err := st.backend.conn()
	if err != nil {
		return err
	}
	s.CreatedAt = st.backend.now()
	_, err = db.ExecContext(ctx,
		"INSERT INTO sessions (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		s.TokenHash, s.UserID, formatTime(s.ExpiresAt), formatTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get retrieves a session by token hash. Expiry is left to the caller.
func (st *SessionsTable) Get(ctx context.Context, tokenHash string) (*types.Session, error) {
	db, err := st.backend.conn()
	if err != nil {
		return nil, err
	}
	var (
		s                    types.Session
		expiresAt, createdAt string
	)
	err = db.QueryRowContext(ctx,
		"SELECT token_hash, user_id, expires_at, created_at FROM sessions WHERE token_hash = ?",
		tokenHash,
	).Scan(&s.TokenHash, &s.UserID, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	s.ExpiresAt = parseTime(expiresAt)
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (st *SessionsTable) Delete(ctx context.Context, tokenHash string) error {
	db, err := st.backend.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM sessions WHERE token_hash = ?", tokenHash); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session that expired at or before now and
// returns how many were removed.
func (st *SessionsTable) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	db, err := st.backend.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return res.RowsAffected()
}
