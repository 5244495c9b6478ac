package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tnr/internal/auth"
)

func (a *app) newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(a.newUserAddCmd())
	return cmd
}

func (a *app) newUserAddCmd() *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a password account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return userError(errors.New("--email and --password are required"))
			}
			s, err := a.settings(cmd)
			if err != nil {
				return err
			}
			b, err := attach(s)
			if err != nil {
				return err
			}
			defer b.Detach()

			u, err := auth.NewService(b, s.SessionTTL).Register(cmd.Context(), email, password, name)
			if err != nil {
				return classify(err)
			}
			return a.report(cmd.OutOrStdout(), u, "created user %s (id %d)", u.Email, u.ID)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password (at least 8 characters)")
	return cmd
}
