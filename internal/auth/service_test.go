package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/tnr/internal/store"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

func setupService(t *testing.T) (*Service, *store.Backend) {
	t.Helper()
	b := store.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	s := NewService(b, time.Hour)
	s.bcryptCost = bcrypt.MinCost
	return s, b
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
		wantMsg  string
	}{
		{"valid", " Ana@Example.com ", "secret123", nil, ""},
		{"missing email", "", "secret123", types.ErrInvalidData, "email is required"},
		{"bad email", "not-an-email", "secret123", types.ErrInvalidData, `email "not-an-email" is not valid`},
		{"short password", "ana@example.com", "short", types.ErrInvalidData, "password must have at least 8 characters"},
		{"both wrong", "x", "y", types.ErrInvalidData, `email "x" is not valid; password must have at least 8 characters`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := setupService(t)
			u, err := s.Register(context.Background(), tt.email, tt.password, "Ana")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ana@example.com", u.Email)
			assert.NotEqual(t, "secret123", u.PasswordHash)
		})
	}
}

func TestLoginAndSessions(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "ana@example.com", "secret123", "Ana")
	require.NoError(t, err)
	_, err = s.Register(ctx, "ANA@example.com", "secret123", "Ana")
	assert.ErrorIs(t, err, types.ErrDuplicateEmail)

	_, _, err = s.Login(ctx, "ana@example.com", "wrong-pass")
	assert.ErrorIs(t, err, types.ErrBadCredentials)
	_, _, err = s.Login(ctx, "bob@example.com", "secret123")
	assert.ErrorIs(t, err, types.ErrBadCredentials)

	u, token, err := s.Login(ctx, " Ana@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	got, err := s.UserForToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.UserForToken(ctx, "")
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
	_, err = s.UserForToken(ctx, "forged")
	assert.ErrorIs(t, err, types.ErrUnauthenticated)

	require.NoError(t, s.Logout(ctx, token))
	_, err = s.UserForToken(ctx, token)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestExpiredSession(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()
	u, err := s.Register(ctx, "ana@example.com", "secret123", "Ana")
	require.NoError(t, err)

	token, err := s.StartSession(ctx, u.ID)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = s.UserForToken(ctx, token)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "expired session was dropped on lookup")
}

func TestRequireMembership(t *testing.T) {
	s, b := setupService(t)
	ctx := context.Background()
	owner, err := s.Register(ctx, "owner@example.com", "secret123", "Owner")
	require.NoError(t, err)
	outsider, err := s.Register(ctx, "out@example.com", "secret123", "Out")
	require.NoError(t, err)

	p := &types.Project{Name: "P"}
	require.NoError(t, b.Projects().Create(ctx, p, owner.ID))

	assert.NoError(t, s.RequireMembership(ctx, p.ID, owner.ID))
	assert.ErrorIs(t, s.RequireMembership(ctx, p.ID, outsider.ID), types.ErrForbidden)
}

func TestSignInGoogle(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()
	existing, err := s.Register(ctx, "ana@example.com", "secret123", "Ana")
	require.NoError(t, err)

	linked, err := s.SignInGoogle(ctx, "sub-1", "ANA@example.com", "Ana G")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID, "linked by email")

	again, err := s.SignInGoogle(ctx, "sub-1", "other@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, again.ID, "found by subject")

	created, err := s.SignInGoogle(ctx, "sub-2", "new@example.com", " New ")
	require.NoError(t, err)
	assert.NotEqual(t, existing.ID, created.ID)
	assert.Equal(t, "New", created.Name)

	_, _, err = s.Login(ctx, "new@example.com", "")
	assert.ErrorIs(t, err, types.ErrBadCredentials, "google accounts have no password")
}

func TestCookies(t *testing.T) {
	s, _ := setupService(t)
	c := s.SessionCookie("tok", true)
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, 3600, c.MaxAge)

	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", TokenFromRequest(r))
	r.AddCookie(c)
	assert.Equal(t, "tok", TokenFromRequest(r))

	assert.Equal(t, -1, ClearCookie(false).MaxAge)
	assert.Len(t, HashToken("tok"), 64)
}
