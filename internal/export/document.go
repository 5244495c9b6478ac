// Package export renders test runs as CSV and PDF files.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/tnr/internal/overview"
	"github.com/mesh-intelligence/tnr/internal/store"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

// RunDocument is everything an export needs about one run.
type RunDocument struct {
	Project     *types.Project
	Release     *types.Release
	Run         *types.TestRun
	Axes        []*types.Axis
	Cases       []*types.RunCase
	Stats       overview.Stats
	AxisStats   []overview.AxisValueStats
	GeneratedAt time.Time
}

// NewRunDocument computes the overview figures of a run.
func NewRunDocument(project *types.Project, release *types.Release, run *types.TestRun,
	axes []*types.Axis, cases []*types.RunCase, now time.Time) *RunDocument {
	stats := overview.AxisStats(axes, cases)
	threshold := overview.ClampThreshold(run.ScopeThreshold)
	for i := range stats {
		stats[i].Highlight = overview.Highlighted(stats[i].Stats.ScopeValidated, threshold)
	}
	return &RunDocument{
		Project:     project,
		Release:     release,
		Run:         run,
		Axes:        axes,
		Cases:       cases,
		Stats:       overview.StatsOf(cases),
		AxisStats:   stats,
		GeneratedAt: now,
	}
}

// LoadRunDocument reads a run and everything around it from the store.
func LoadRunDocument(ctx context.Context, b *store.Backend, runID int64, now time.Time) (*RunDocument, error) {
	run, err := b.Runs().Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	project, err := b.Projects().Get(ctx, run.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("loading project of run %d: %w", runID, err)
	}
	release, err := b.Releases().Get(ctx, run.ReleaseID)
	if err != nil {
		return nil, fmt.Errorf("loading release of run %d: %w", runID, err)
	}
	axes, err := b.Axes().List(ctx, run.ProjectID)
	if err != nil {
		return nil, err
	}
	cases, err := b.RunCases().ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return NewRunDocument(project, release, run, axes, cases, now), nil
}

// FileName returns a download name such as "run-12.csv".
func (d *RunDocument) FileName(ext string) string {
	return fmt.Sprintf("run-%d.%s", d.Run.ID, ext)
}

func formatTested(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
