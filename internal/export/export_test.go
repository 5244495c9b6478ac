package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

func testDocument(cases int) *RunDocument {
	tested := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	testerID := int64(7)
	axes := []*types.Axis{
		{LevelNumber: 2, Label: "Env", Values: []types.AxisValue{{ValueLabel: "Prod", SortOrder: 1}}},
		{LevelNumber: 1, Label: "Browser", Values: []types.AxisValue{{ValueLabel: "Chrome", SortOrder: 1}}},
	}
	var list []*types.RunCase
	for i := cases; i >= 1; i-- {
		rc := &types.RunCase{
			ID:               int64(i),
			CaseNumber:       i,
			Title:            fmt.Sprintf("Case %d (login)", i),
			Steps:            "Open the page\nClick \"Sign in\", then wait",
			ExpectedResult:   "Dashboard",
			AnalyticalValues: types.AnalyticalValues{"1": "Chrome", "2": "Prod"},
			Status:           types.StatusNotRun,
		}
		if i == 1 {
			rc.Status = types.StatusPass
			rc.Comment = "ok, fine"
			rc.TestedAt = &tested
			rc.TestedBy = &testerID
			rc.TesterName = "Ana"
		}
		list = append(list, rc)
	}
	return NewRunDocument(
		&types.Project{ID: 1, Name: "Shop"},
		&types.Release{ID: 2, Version: "1.0"},
		&types.TestRun{ID: 3, Name: "Regression", Status: types.RunOpen, ScopeThreshold: 80},
		axes, list, tested,
	)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testDocument(2)))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"#", "Browser", "Env", "Title", "Steps", "Expected", "Status", "Comment", "Tester", "Tested At"}, records[0])
	assert.Equal(t, []string{"1", "Chrome", "Prod", "Case 1 (login)", "Open the page\nClick \"Sign in\", then wait",
		"Dashboard", "PASS", "ok, fine", "Ana", "2026-05-04 09:30"}, records[1])
	assert.Equal(t, "2", records[2][0])
	assert.Equal(t, "", records[2][9])
}

var objRe = regexp.MustCompile(`^(\d+) 0 obj`)

// checkXref verifies every in-use xref entry points at the start of its
// object.
func checkXref(t *testing.T, pdf []byte) int {
	t.Helper()
	s := string(pdf)
	idx := strings.LastIndex(s, "startxref\n")
	require.NotEqual(t, -1, idx)
	rest := strings.SplitN(s[idx+len("startxref\n"):], "\n", 2)
	xref, err := strconv.Atoi(rest[0])
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(s[xref:], "xref\n"))

	lines := strings.Split(s[xref:], "\n")
	var count int
	_, err = fmt.Sscanf(lines[1], "0 %d", &count)
	require.NoError(t, err)
	for id := 1; id < count; id++ {
		entry := lines[2+id]
		require.Len(t, entry, 19, "entry %d", id)
		off, err := strconv.Atoi(entry[:10])
		require.NoError(t, err)
		m := objRe.FindStringSubmatch(s[off:])
		require.NotNil(t, m, "offset of object %d", id)
		assert.Equal(t, strconv.Itoa(id), m[1])
	}
	return count
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, testDocument(3)))
	pdf := buf.Bytes()

	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-1.4\n")))
	assert.True(t, bytes.HasSuffix(pdf, []byte("%%EOF\n")))
	assert.Contains(t, string(pdf), "/Count 1")
	assert.Contains(t, string(pdf), `(Test run: Regression) Tj`)
	assert.Contains(t, string(pdf), `#1  [PASS]  Case 1 \(login\)`)
	assert.Contains(t, string(pdf), "/BaseFont /Helvetica-Bold")

	assert.Equal(t, 7, checkXref(t, pdf))
}

func TestWritePDFPageBreaks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, testDocument(60)))
	pdf := buf.String()

	m := regexp.MustCompile(`/Count (\d+)`).FindStringSubmatch(pdf)
	require.NotNil(t, m)
	pages, err := strconv.Atoi(m[1])
	require.NoError(t, err)
	assert.Greater(t, pages, 1)
	assert.Contains(t, pdf, fmt.Sprintf("(Page %d of %d)", pages, pages))

	assert.Equal(t, 5+2*pages, checkXref(t, buf.Bytes()))
}

func TestEscapePDF(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`a\b`, `a\\b`},
		{"(x)", `\(x\)`},
		{"café", `caf\351`},
		{"tab\there", "tab here"},
		{"日本", "??"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapePDF(tt.in), tt.in)
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"one two", "three"}, wrap("one two three", 8))
	assert.Equal(t, []string{"abcd", "ef"}, wrap("abcdef", 4))
	assert.Equal(t, []string{"a", "", "b"}, wrap("a\n\nb", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "short", truncate("short", 7))
}
