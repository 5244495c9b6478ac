package cli

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// csvColumns maps the recognised headers, lower-cased, to test case
// fields. Any other header naming an axis label fills that level.
var csvColumns = map[string]string{
	"title":           "title",
	"steps":           "steps",
	"expected":        "expected",
	"expected result": "expected",
	"expected_result": "expected",
}

// importedCase is one parsed CSV row with its line number.
type importedCase struct {
	Line int
	Case *types.TestCase
}

// parseCasesCSV reads test book cases from r. The header row must contain
// a Title column; columns named after an axis label become analytical
// values. Rows with an empty title are skipped and reported in skipped.
// Columns that match nothing are returned in ignored.
func parseCasesCSV(r io.Reader, axes []*types.Axis) (cases []importedCase, skipped []int, ignored []string, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, nil, err
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil, fmt.Errorf("%w: empty CSV file", types.ErrInvalidData)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}

	levels := map[string]int{}
	for _, a := range axes {
		levels[strings.ToLower(strings.TrimSpace(a.Label))] = a.LevelNumber
	}
	fields := make([]string, len(header))
	axisCols := make([]int, len(header))
	hasTitle := false
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if f, ok := csvColumns[key]; ok {
			fields[i] = f
			hasTitle = hasTitle || f == "title"
			continue
		}
		if lvl, ok := levels[key]; ok {
			axisCols[i] = lvl
			continue
		}
		if key != "" && key != "#" {
			ignored = append(ignored, h)
		}
	}
	if !hasTitle {
		return nil, nil, nil, fmt.Errorf("%w: CSV header has no Title column", types.ErrInvalidData)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
		}
		line, _ := cr.FieldPos(0)
		tc := &types.TestCase{AnalyticalValues: types.AnalyticalValues{}}
		for i, v := range rec {
			if i >= len(header) {
				break
			}
			v = strings.TrimSpace(v)
			switch {
			case fields[i] == "title":
				tc.Title = v
			case fields[i] == "steps":
				tc.Steps = v
			case fields[i] == "expected":
				tc.ExpectedResult = v
			case axisCols[i] > 0 && v != "":
				tc.AnalyticalValues[types.LevelKey(axisCols[i])] = v
			}
		}
		if tc.Title == "" {
			skipped = append(skipped, line)
			continue
		}
		cases = append(cases, importedCase{Line: line, Case: tc})
	}
	return cases, skipped, ignored, nil
}

type importResult struct {
	ProjectID int64    `json:"project_id"`
	Imported  int      `json:"imported"`
	Skipped   []int    `json:"skipped_lines"`
	Ignored   []string `json:"ignored_columns"`
}

func (a *app) newImportCmd() *cobra.Command {
	var (
		projectID int64
		file      string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import test book cases from a CSV file",
		Long: "Append the rows of a CSV file to a project's test book. The header needs a\n" +
			"Title column; Steps, Expected and columns named after axis labels are optional.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID <= 0 || file == "" {
				return userError(errors.New("--project and --file are required"))
			}
			f, err := os.Open(file)
			if err != nil {
				return userError(err)
			}
			defer f.Close()

			s, err := a.settings(cmd)
			if err != nil {
				return err
			}
			b, err := attach(s)
			if err != nil {
				return err
			}
			defer b.Detach()

			ctx := cmd.Context()
			if _, err := b.Projects().Get(ctx, projectID); err != nil {
				return classify(fmt.Errorf("project %d: %w", projectID, err))
			}
			axes, err := b.Axes().List(ctx, projectID)
			if err != nil {
				return classify(err)
			}
			cases, skipped, ignored, err := parseCasesCSV(f, axes)
			if err != nil {
				return classify(err)
			}

			barOut := cmd.ErrOrStderr()
			if a.jsonMode {
				barOut = io.Discard
			}
			bar := progressbar.NewOptions(len(cases),
				progressbar.OptionSetWriter(barOut),
				progressbar.OptionSetDescription(color.CyanString("Importing")),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			batch := make([]*types.TestCase, len(cases))
			for i, ic := range cases {
				batch[i] = ic.Case
			}
			err = b.TestCases().CreateMany(ctx, projectID, batch, func(*types.TestCase) { bar.Add(1) })
			if err != nil {
				return classify(fmt.Errorf("import rolled back, no cases were added: %w", err))
			}
			bar.Finish()

			if !a.jsonMode {
				for _, line := range skipped {
					warn(cmd.ErrOrStderr(), "line %d skipped: empty title", line)
				}
				if len(ignored) > 0 {
					warn(cmd.ErrOrStderr(), "ignored columns: %s", strings.Join(ignored, ", "))
				}
			}
			res := importResult{ProjectID: projectID, Imported: len(cases), Skipped: skipped, Ignored: ignored}
			return a.report(cmd.OutOrStdout(), res, "imported %d cases into project %d", len(cases), projectID)
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project ID")
	cmd.Flags().StringVar(&file, "file", "", "CSV file to import")
	return cmd
}
