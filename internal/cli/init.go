package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tnr/internal/auth"
	"github.com/mesh-intelligence/tnr/internal/store"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

// Demo account created by "init --demo" when it does not exist yet.
const (
	defaultDemoEmail    = "demo@example.com"
	defaultDemoPassword = "demo-password"
)

type initResult struct {
	ConfigDir string         `json:"config_dir"`
	DataDir   string         `json:"data_dir"`
	Backend   string         `json:"backend"`
	Demo      *types.Project `json:"demo_project,omitempty"`
	DemoUser  string         `json:"demo_user,omitempty"`
}

func (a *app) newInitCmd() *cobra.Command {
	var (
		demo         bool
		demoEmail    string
		demoPassword string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize tnr storage",
		Long: "Create the configuration and data directories, write a default config.yaml,\n" +
			"apply the database schema and optionally seed a demo project.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings(cmd)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
				return systemError(fmt.Errorf("create data directory: %w", err))
			}
			b, err := attach(s)
			if err != nil {
				return err
			}
			defer b.Detach()

			res := initResult{ConfigDir: s.ConfigDir, DataDir: s.DataDir, Backend: s.Backend}
			if demo {
				owner, err := demoOwner(cmd.Context(), b, s.SessionTTL, demoEmail, demoPassword)
				if err != nil {
					return classify(err)
				}
				p, err := b.SeedDemo(cmd.Context(), owner.ID)
				if err != nil {
					return classify(fmt.Errorf("seed demo project: %w", err))
				}
				res.Demo = p
				res.DemoUser = owner.Email
			}

			if err := a.report(cmd.OutOrStdout(), res, "tnr initialized in %s (%s)", s.DataDir, s.Backend); err != nil {
				return err
			}
			if res.Demo != nil && !a.jsonMode {
				fmt.Fprintf(cmd.OutOrStdout(), "  demo project %q (id %d), sign in as %s\n", res.Demo.Name, res.Demo.ID, res.DemoUser)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "seed a demo project with axes, cases, a release and a run")
	cmd.Flags().StringVar(&demoEmail, "demo-email", defaultDemoEmail, "owner of the demo project")
	cmd.Flags().StringVar(&demoPassword, "demo-password", defaultDemoPassword, "password of a newly created demo owner")
	return cmd
}

// demoOwner returns the account with email, registering it when missing.
func demoOwner(ctx context.Context, b *store.Backend, ttl time.Duration, email, password string) (*types.User, error) {
	svc := auth.NewService(b, ttl)
	u, err := b.Users().GetByEmail(ctx, auth.NormalizeEmail(email))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	return svc.Register(ctx, email, password, "Demo")
}
