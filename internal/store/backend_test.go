package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// setupBackend attaches a fresh SQLite backend in a temp dir.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func createUser(t *testing.T, b *Backend, email string) *types.User {
	t.Helper()
	u := &types.User{Email: email, Name: "User " + email, PasswordHash: "x"}
	require.NoError(t, b.Users().Create(context.Background(), u))
	return u
}

func createProject(t *testing.T, b *Backend, ownerID int64) *types.Project {
	t.Helper()
	p := &types.Project{Name: "Shop", Description: "web shop"}
	require.NoError(t, b.Projects().Create(context.Background(), p, ownerID))
	return p
}

func TestBackendLifecycle(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend, dir string)
	}{
		{
			name: "attach twice fails",
			check: func(t *testing.T, b *Backend, dir string) {
				err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir})
				assert.ErrorIs(t, err, types.ErrAlreadyAttached)
			},
		},
		{
			name: "ping succeeds while attached",
			check: func(t *testing.T, b *Backend, dir string) {
				assert.NoError(t, b.Ping(context.Background()))
				assert.Equal(t, types.BackendSQLite, b.Backend())
			},
		},
		{
			name: "operations fail after detach",
			check: func(t *testing.T, b *Backend, dir string) {
				require.NoError(t, b.Detach())
				_, err := b.Users().Get(context.Background(), 1)
				assert.ErrorIs(t, err, types.ErrStoreDetached)
				assert.ErrorIs(t, b.Ping(context.Background()), types.ErrStoreDetached)
			},
		},
		{
			name: "detach is idempotent",
			check: func(t *testing.T, b *Backend, dir string) {
				require.NoError(t, b.Detach())
				assert.NoError(t, b.Detach())
			},
		},
		{
			name: "reattach keeps data",
			check: func(t *testing.T, b *Backend, dir string) {
				u := createUser(t, b, "keep@example.com")
				require.NoError(t, b.Detach())
				require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
				got, err := b.Users().Get(context.Background(), u.ID)
				require.NoError(t, err)
				assert.Equal(t, "keep@example.com", got.Email)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			b := NewBackend()
			require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
			t.Cleanup(func() { b.Detach() })
			tt.check(t, b, dir)
		})
	}
}

func TestAttachRejectsInvalidConfig(t *testing.T) {
	b := NewBackend()
	assert.ErrorIs(t, b.Attach(types.Config{}), types.ErrBackendEmpty)
	assert.ErrorIs(t, b.Attach(types.Config{Backend: "oracle"}), types.ErrBackendUnknown)
	assert.ErrorIs(t, b.Attach(types.Config{Backend: types.BackendMySQL}), types.ErrDSNEmpty)
}

func TestUsersAndSessions(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	u := createUser(t, b, "ana@example.com")
	assert.Positive(t, u.ID)

	dup := &types.User{Email: "ana@example.com", Name: "Other"}
	assert.ErrorIs(t, b.Users().Create(ctx, dup), types.ErrDuplicateEmail)

	got, err := b.Users().GetByEmail(ctx, "  ANA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = b.Users().GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, b.Users().LinkGoogle(ctx, u.ID, "sub-123"))
	got, err = b.Users().GetByGoogleSubject(ctx, "sub-123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	now := time.Now().UTC()
	live := &types.Session{TokenHash: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}
	dead := &types.Session{TokenHash: "dead", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, b.Sessions().Create(ctx, live))
	require.NoError(t, b.Sessions().Create(ctx, dead))

	n, err := b.Sessions().DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s, err := b.Sessions().Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.UserID)

	_, err = b.Sessions().Get(ctx, "dead")
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, b.Sessions().Delete(ctx, "live"))
	_, err = b.Sessions().Get(ctx, "live")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
