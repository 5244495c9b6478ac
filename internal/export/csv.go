package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// utf8BOM lets spreadsheet tools detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes one row per run case in case-number order, with one
// column per axis.
func WriteCSV(w io.Writer, doc *RunDocument) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	cw := csv.NewWriter(w)

	axes := append(doc.Axes[:0:0], doc.Axes...)
	sort.SliceStable(axes, func(i, j int) bool { return axes[i].LevelNumber < axes[j].LevelNumber })

	header := []string{"#"}
	for _, a := range axes {
		header = append(header, a.Label)
	}
	header = append(header, "Title", "Steps", "Expected", "Status", "Comment", "Tester", "Tested At")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	cases := append(doc.Cases[:0:0], doc.Cases...)
	sort.SliceStable(cases, func(i, j int) bool { return cases[i].CaseNumber < cases[j].CaseNumber })
	for _, c := range cases {
		row := []string{strconv.Itoa(c.CaseNumber)}
		for _, a := range axes {
			row = append(row, c.AnalyticalValues.Value(a.LevelNumber))
		}
		row = append(row, c.Title, c.Steps, c.ExpectedResult, string(c.Status), c.Comment,
			c.Tester(), formatTested(c.TestedAt))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing case %d: %w", c.CaseNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
