package store

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// demoCase describes a Test Book case of the demo project.
type demoCase struct {
	title    string
	steps    string
	expected string
	values   types.AnalyticalValues
}

var demoAxes = []types.AxisInput{
	{Label: "Browser", Values: []string{"Chrome", "Firefox", "Safari"}},
	{Label: "Environment", Values: []string{"Staging", "Production"}},
}

var demoCases = []demoCase{
	{"Login with valid credentials", "Open /login\nEnter a known email and password\nSubmit", "Dashboard is shown",
		types.AnalyticalValues{"1": "Chrome", "2": "Staging"}},
	{"Login with wrong password", "Open /login\nEnter a wrong password\nSubmit", "An error message is shown",
		types.AnalyticalValues{"1": "Chrome", "2": "Production"}},
	{"Add item to cart", "Open a product page\nClick Add to cart", "Cart badge shows 1",
		types.AnalyticalValues{"1": "Firefox", "2": "Staging"}},
	{"Checkout with card", "Fill the cart\nPay with a test card", "Order confirmation is shown",
		types.AnalyticalValues{"1": "Firefox", "2": "Production"}},
	{"Search by keyword", "Type a keyword in the search box", "Matching products are listed",
		types.AnalyticalValues{"1": "Safari", "2": "Staging"}},
	{"Logout", "Click Logout in the user menu", "Login page is shown",
		types.AnalyticalValues{"1": "Safari", "2": "Production"}},
}

// demoResults are applied to the first run cases of the demo run.
var demoResults = []types.Status{types.StatusPass, types.StatusPass, types.StatusFail, types.StatusBlocked}

// SeedDemo creates a demo project owned by ownerID with two axes, a small
// Test Book, one release and one partly executed run.
func (b *Backend) SeedDemo(ctx context.Context, ownerID int64) (*types.Project, error) {
	project := &types.Project{Name: "Demo web shop", Description: "Sample project with a partly executed run"}
	if err := b.Projects().Create(ctx, project, ownerID); err != nil {
		return nil, fmt.Errorf("seeding project: %w", err)
	}
	if err := b.Axes().Save(ctx, project.ID, demoAxes); err != nil {
		return nil, fmt.Errorf("seeding axes: %w", err)
	}
	for _, dc := range demoCases {
		tc := &types.TestCase{
			ProjectID:        project.ID,
			Title:            dc.title,
			Steps:            dc.steps,
			ExpectedResult:   dc.expected,
			AnalyticalValues: dc.values,
		}
		if err := b.TestCases().Create(ctx, tc); err != nil {
			return nil, fmt.Errorf("seeding case %q: %w", dc.title, err)
		}
	}

	release := &types.Release{ProjectID: project.ID, Version: "1.0.0", Notes: "First release"}
	if err := b.Releases().Create(ctx, release); err != nil {
		return nil, fmt.Errorf("seeding release: %w", err)
	}
	run := &types.TestRun{ProjectID: project.ID, ReleaseID: release.ID, Name: "Regression 1.0.0", CreatedBy: ownerID}
	if err := b.Runs().Create(ctx, run); err != nil {
		return nil, fmt.Errorf("seeding run: %w", err)
	}

	cases, err := b.RunCases().ListByRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	for i, st := range demoResults {
		if i >= len(cases) {
			break
		}
		if err := b.RunCases().SetResult(ctx, cases[i].ID, st, "", ownerID, true); err != nil {
			return nil, fmt.Errorf("seeding result: %w", err)
		}
	}
	return project, nil
}
