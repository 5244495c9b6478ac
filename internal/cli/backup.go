package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

type backupResult struct {
	Dir    string         `json:"dir"`
	Tables map[string]int `json:"tables"`
}

func totalRows(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

func (a *app) printCounts(cmd *cobra.Command, counts map[string]int) {
	if a.jsonMode {
		return
	}
	tables := make([]string, 0, len(counts))
	for t := range counts {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %d\n", t, counts[t])
	}
}

func (a *app) newBackupCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump every table to JSONL files",
		Long: "Write one <table>.jsonl file per table into the output directory.\n" +
			"Uploaded files are not included; copy the uploads directory separately.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return userError(errors.New("--out is required"))
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

			counts, err := b.Dump(cmd.Context(), out)
			if err != nil {
				return classify(fmt.Errorf("backup: %w", err))
			}
			if err := a.report(cmd.OutOrStdout(), backupResult{Dir: out, Tables: counts},
				"backed up %d rows to %s", totalRows(counts), out); err != nil {
				return err
			}
			a.printCounts(cmd, counts)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "backup directory")
	return cmd
}

func (a *app) newRestoreCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Load a backup into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return userError(errors.New("--from is required"))
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

			counts, err := b.Restore(cmd.Context(), from)
			if err != nil {
				return classify(fmt.Errorf("restore: %w", err))
			}
			if err := a.report(cmd.OutOrStdout(), backupResult{Dir: from, Tables: counts},
				"restored %d rows from %s", totalRows(counts), from); err != nil {
				return err
			}
			a.printCounts(cmd, counts)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "backup directory written by tnr backup")
	return cmd
}
