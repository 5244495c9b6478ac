package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tnr/internal/export"
)

var exportWriters = map[string]func(io.Writer, *export.RunDocument) error{
	"csv": export.WriteCSV,
	"pdf": export.WritePDF,
}

func (a *app) newExportCmd() *cobra.Command {
	var (
		runID  int64
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the results of a run as CSV or PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			write, ok := exportWriters[format]
			if !ok {
				return userError(fmt.Errorf("unknown format %q (want csv or pdf)", format))
			}
			if runID <= 0 {
				return userError(fmt.Errorf("--run is required"))
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

			doc, err := export.LoadRunDocument(cmd.Context(), b, runID, time.Now().UTC())
			if err != nil {
				return classify(fmt.Errorf("load run %d: %w", runID, err))
			}

			if out == "" || out == "-" {
				return classify(write(cmd.OutOrStdout(), doc))
			}
			if err := writeFile(out, func(w io.Writer) error { return write(w, doc) }); err != nil {
				return systemError(err)
			}
			return a.report(cmd.OutOrStdout(), map[string]any{"run_id": runID, "format": format, "file": out},
				"exported run %d to %s", runID, out)
		},
	}
	cmd.Flags().Int64Var(&runID, "run", 0, "run ID")
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv or pdf")
	cmd.Flags().StringVar(&out, "out", "", "output file (default: stdout)")
	return cmd
}

// writeFile renders into a temp file next to path and renames it into
// place. The temp file is removed on failure.
func writeFile(path string, render func(io.Writer) error) (err error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()
	if err = render(f); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
