// Package cli implements the tnr command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tnr/internal/config"
	"github.com/mesh-intelligence/tnr/internal/logging"
	"github.com/mesh-intelligence/tnr/internal/store"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError tags an error with the process exit code it maps to.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }

func systemError(err error) error { return &exitError{code: exitSysError, err: err} }

// userMistakes are the errors caused by bad input rather than by the
// environment.
var userMistakes = []error{
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrInvalidName,
	types.ErrInvalidStatus,
	types.ErrInvalidAxes,
	types.ErrDuplicateEmail,
	types.ErrAlreadyMember,
	types.ErrNotEmpty,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	types.ErrDSNEmpty,
}

// classify wraps err as a user or system error by its cause.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	for _, target := range userMistakes {
		if errors.Is(err, target) {
			return userError(err)
		}
	}
	return systemError(err)
}

// ExitCode returns the process exit code for the error returned by the
// root command. Untagged errors come from flag parsing and count as user
// errors.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// app holds the global flag values shared by all subcommands.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// NewRootCmd creates the top-level "tnr" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tnr",
		Short: "Test-case and test-run manager",
		Long: "tnr manages projects, releases, a parameterized test book and test runs,\n" +
			"and serves the web application and its JSON API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: .tnr)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: .tnr-data)")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(a.newVersionCmd())
	root.AddCommand(a.newInitCmd())
	root.AddCommand(a.newConfigCmd())
	root.AddCommand(a.newServeCmd())
	root.AddCommand(a.newUserCmd())
	root.AddCommand(a.newExportCmd())
	root.AddCommand(a.newImportCmd())
	root.AddCommand(a.newBackupCmd())
	root.AddCommand(a.newRestoreCmd())

	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
	}
	os.Exit(ExitCode(err))
}

// settings loads the configuration and configures logging to stderr.
func (a *app) settings(cmd *cobra.Command) (*config.Settings, error) {
	s, err := config.Load(config.Options{ConfigDir: a.configDir, DataDir: a.dataDir})
	if err != nil {
		return nil, systemError(err)
	}
	if err := logging.Configure(s.LogLevel, s.LogFormat, cmd.ErrOrStderr()); err != nil {
		return nil, userError(err)
	}
	return s, nil
}

// attach opens the configured store. The caller must Detach it.
func attach(s *config.Settings) (*store.Backend, error) {
	b := store.NewBackend()
	if err := b.Attach(s.StoreConfig()); err != nil {
		return nil, classify(fmt.Errorf("attach store: %w", err))
	}
	return b, nil
}

// report prints v as JSON in --json mode and the formatted line otherwise.
func (a *app) report(w io.Writer, v any, format string, args ...any) error {
	if a.jsonMode {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := color.New(color.FgGreen).Fprintf(w, "✓ "+format+"\n", args...)
	return err
}

func warn(w io.Writer, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(w, "! "+format+"\n", args...)
}
