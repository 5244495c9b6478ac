// Package store implements the relational persistence layer of the TNR
// manager. A Backend owns one database/sql handle, either an embedded SQLite
// file or a MySQL server, and hands out typed table accessors for every
// entity. Multi-row changes (axis saves, run snapshots, cascading deletes)
// run inside a single transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// DatabaseFileName is the SQLite file created inside DataDir.
const DatabaseFileName = "tnr.db"

// sqlitePragmas are applied to every SQLite connection through the DSN.
const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// Backend is the database handle shared by all table accessors.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	dialect  goqu.DialectWrapper

	// now is the clock used for timestamps; tests replace it.
	now func() time.Time
}

// NewBackend creates a new backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Attach opens the database described by config and applies the schema.
// For SQLite, DataDir is created if it does not exist.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	var (
		db  *sql.DB
		err error
		ddl []string
	)
	switch config.Backend {
	case types.BackendMySQL:
		db, err = sql.Open("mysql", config.DSN)
		if err != nil {
			return fmt.Errorf("opening mysql: %w", err)
		}
		b.dialect = goqu.Dialect("mysql")
		ddl = mysqlSchema
	default:
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return err
		}
		db, err = sql.Open("sqlite", "file:"+filepath.Join(dataDir, DatabaseFileName)+sqlitePragmas)
		if err != nil {
			return fmt.Errorf("opening sqlite: %w", err)
		}
		b.dialect = goqu.Dialect("sqlite3")
		ddl = sqliteSchema
	}

	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		return err
	}
	return nil
}

// Ping verifies the database connection is alive.
func (b *Backend) Ping(ctx context.Context) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Backend returns the configured backend name.
func (b *Backend) Backend() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.Backend
}

// conn returns the open handle or ErrStoreDetached.
func (b *Backend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.db, nil
}

// withTx runs fn inside a transaction, committing on success.
func (b *Backend) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// query builds and runs a goqu select.
func (b *Backend) query(ctx context.Context, ds *goqu.SelectDataset) (*sql.Rows, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	q, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return db.QueryContext(ctx, q, args...)
}

// Table accessors.

func (b *Backend) Users() *UsersTable             { return &UsersTable{backend: b} }
func (b *Backend) Sessions() *SessionsTable       { return &SessionsTable{backend: b} }
func (b *Backend) Projects() *ProjectsTable       { return &ProjectsTable{backend: b} }
func (b *Backend) Releases() *ReleasesTable       { return &ReleasesTable{backend: b} }
func (b *Backend) TestCases() *TestCasesTable     { return &TestCasesTable{backend: b} }
func (b *Backend) Axes() *AxesTable               { return &AxesTable{backend: b} }
func (b *Backend) Runs() *RunsTable               { return &RunsTable{backend: b} }
func (b *Backend) RunCases() *RunCasesTable       { return &RunCasesTable{backend: b} }
func (b *Backend) Attachments() *AttachmentsTable { return &AttachmentsTable{backend: b} }
