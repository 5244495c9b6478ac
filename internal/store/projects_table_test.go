package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

func TestProjectsCreateAndMembership(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	owner := createUser(t, b, "owner@example.com")
	other := createUser(t, b, "other@example.com")

	p := createProject(t, b, owner.ID)

	ok, err := b.Projects().IsMember(ctx, p.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, ok, "creator is a member")

	ok, err = b.Projects().IsMember(ctx, p.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := b.Projects().ListForUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	for _, role := range []string{"admin", "viewer", "owner!"} {
		_, err := b.Projects().AddMember(ctx, p.ID, "other@example.com", role)
		assert.ErrorIs(t, err, types.ErrInvalidData, role)
	}
	ok, err = b.Projects().IsMember(ctx, p.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, ok, "rejected role adds nobody")

	m, err := b.Projects().AddMember(ctx, p.ID, "Other@Example.com", "")
	require.NoError(t, err)
	assert.Equal(t, types.RoleMember, m.Role)
	assert.Equal(t, other.ID, m.UserID)

	_, err = b.Projects().AddMember(ctx, p.ID, "other@example.com", "")
	assert.ErrorIs(t, err, types.ErrAlreadyMember)

	_, err = b.Projects().AddMember(ctx, p.ID, "ghost@example.com", "")
	assert.ErrorIs(t, err, types.ErrNotFound)

	list, err = b.Projects().ListForUser(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	members, err := b.Projects().Members(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, types.RoleOwner, members[0].Role)
	assert.Equal(t, "owner@example.com", members[0].Email)
}

func TestProjectsCreateRejectsBlankName(t *testing.T) {
	b := setupBackend(t)
	owner := createUser(t, b, "owner@example.com")
	err := b.Projects().Create(context.Background(), &types.Project{Name: "   "}, owner.ID)
	assert.ErrorIs(t, err, types.ErrInvalidName)
}

func TestProjectsDeleteCascades(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	owner := createUser(t, b, "owner@example.com")
	p, err := b.SeedDemo(ctx, owner.ID)
	require.NoError(t, err)

	require.NoError(t, b.Projects().Delete(ctx, p.ID))

	_, err = b.Projects().Get(ctx, p.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	db, err := b.conn()
	require.NoError(t, err)
	for _, table := range []string{"project_members", "releases", "test_cases", "test_case_values",
		"test_book_axes", "test_book_axis_values", "test_runs", "test_run_cases", "test_run_case_values"} {
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, "table %s should be empty", table)
	}

	assert.ErrorIs(t, b.Projects().Delete(ctx, p.ID), types.ErrNotFound)
}

func TestReleases(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	owner := createUser(t, b, "owner@example.com")
	p := createProject(t, b, owner.ID)

	assert.ErrorIs(t, b.Releases().Create(ctx, &types.Release{ProjectID: p.ID, Version: " "}), types.ErrInvalidName)
	assert.ErrorIs(t, b.Releases().Create(ctx, &types.Release{ProjectID: 999, Version: "1.0"}), types.ErrNotFound)

	r1 := &types.Release{ProjectID: p.ID, Version: "1.0"}
	r2 := &types.Release{ProjectID: p.ID, Version: "2.0"}
	require.NoError(t, b.Releases().Create(ctx, r1))
	require.NoError(t, b.Releases().Create(ctx, r2))

	list, err := b.Releases().ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, r2.ID, list[0].ID, "newest first")

	run := &types.TestRun{ProjectID: p.ID, ReleaseID: r1.ID, Name: "R1", CreatedBy: owner.ID}
	require.NoError(t, b.Runs().Create(ctx, run))

	require.NoError(t, b.Releases().Delete(ctx, r1.ID))
	_, err = b.Runs().Get(ctx, run.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	list, err = b.Releases().ListByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
