package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

func TestDumpAndRestore(t *testing.T) {
	ctx := context.Background()
	src := setupBackend(t)
	owner := createUser(t, src, "owner@example.com")
	project, err := src.SeedDemo(ctx, owner.ID)
	require.NoError(t, err)

	dir := t.TempDir()
	counts, err := src.Dump(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["users"])
	assert.Equal(t, len(demoCases), counts["test_cases"])
	for _, table := range tableNames {
		_, err := os.Stat(filepath.Join(dir, BackupFile(table)))
		assert.NoError(t, err, "backup file for %s", table)
	}

	dst := setupBackend(t)
	restored, err := dst.Restore(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, counts, restored)

	p, err := dst.Projects().Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.Name, p.Name)

	releases, err := dst.Releases().ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, releases, 1)
	runs, err := dst.Runs().ListByRelease(ctx, releases[0].ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, len(demoCases), runs[0].Summary.Total)
	assert.Equal(t, 2, runs[0].Summary.Pass)
	assert.Equal(t, float64(types.DefaultScopeThreshold), runs[0].ScopeThreshold)

	// A second restore into a populated database is refused.
	_, err = dst.Restore(ctx, dir)
	assert.ErrorIs(t, err, types.ErrNotEmpty)
}

func TestReadJSONLSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n\nnot json\n{\"b\":2}\n"), 0o644))

	records, err := readJSONL(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"a":1}`, string(records[0]))
	assert.JSONEq(t, `{"b":2}`, string(records[1]))
}

func TestSeedDemo(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	owner := createUser(t, b, "owner@example.com")

	p, err := b.SeedDemo(ctx, owner.ID)
	require.NoError(t, err)

	axes, err := b.Axes().List(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, axes, 2)
	assert.Equal(t, "Browser", axes[0].Label)
	assert.Len(t, axes[0].Values, 3)

	cases, err := b.TestCases().ListByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, cases, len(demoCases))

	releases, err := b.Releases().ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, releases, 1)
	runs, err := b.Runs().ListByRelease(ctx, releases[0].ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.Summary{Total: 6, Pass: 2, Fail: 1, Blocked: 1, NotRun: 2}, runs[0].Summary)
}
