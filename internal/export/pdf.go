package export

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// A4 portrait, in points.
const (
	pageWidth    = 595.0
	pageHeight   = 842.0
	marginLeft   = 40.0
	marginRight  = 40.0
	marginTop    = 50.0
	marginBottom = 50.0

	contentWidth = pageWidth - marginLeft - marginRight

	fontRegular = "F1"
	fontBold    = "F2"
)

// layout accumulates page content streams with a top-down cursor.
type layout struct {
	pages []*bytes.Buffer
	cur   *bytes.Buffer
	y     float64
}

func newLayout() *layout {
	l := &layout{}
	l.newPage()
	return l
}

func (l *layout) newPage() {
	l.cur = &bytes.Buffer{}
	l.pages = append(l.pages, l.cur)
	l.y = pageHeight - marginTop
}

// ensure starts a new page unless h points fit above the bottom margin.
func (l *layout) ensure(h float64) {
	if l.y-h < marginBottom {
		l.newPage()
	}
}

// text draws s with its baseline at the cursor and moves the cursor down.
func (l *layout) text(font string, size, x float64, s string) {
	l.ensure(size * 1.3)
	l.y -= size
	l.textAt(font, size, x, l.y, s)
	l.y -= size * 0.3
}

func (l *layout) textAt(font string, size, x, y float64, s string) {
	fmt.Fprintf(l.cur, "BT /%s %s Tf %s %s Td (%s) Tj ET\n", font, num(size), num(x), num(y), escapePDF(s))
}

// paragraph wraps s to the content width below an optional bold label.
func (l *layout) paragraph(label, s string, size float64) {
	if strings.TrimSpace(s) == "" {
		return
	}
	x := marginLeft + 12
	if label != "" {
		l.text(fontBold, size, x, label)
	}
	for _, line := range wrap(s, maxChars(contentWidth-12, size)) {
		l.text(fontRegular, size, x, line)
	}
}

// rule draws a horizontal line across the content width.
func (l *layout) rule() {
	l.ensure(6)
	l.y -= 3
	fmt.Fprintf(l.cur, "0.6 G 0.5 w %s %s m %s %s l S 0 G\n",
		num(marginLeft), num(l.y), num(pageWidth-marginRight), num(l.y))
	l.y -= 3
}

// gap moves the cursor down by h points.
func (l *layout) gap(h float64) {
	l.y -= h
}

// tableRow draws cells at the given column offsets, optionally on a
// shaded band.
func (l *layout) tableRow(font string, size float64, cols []float64, cells []string, shade bool) {
	h := size * 1.5
	l.ensure(h)
	if shade {
		fmt.Fprintf(l.cur, "0.85 0.95 0.85 rg %s %s %s %s re f 0 g\n",
			num(marginLeft), num(l.y-h), num(contentWidth), num(h))
	}
	base := l.y - size
	for i, c := range cells {
		if i >= len(cols) {
			break
		}
		limit := contentWidth - cols[i]
		if i+1 < len(cols) {
			limit = cols[i+1] - cols[i] - 4
		}
		l.textAt(font, size, marginLeft+cols[i], base, truncate(c, maxChars(limit, size)))
	}
	l.y -= h
}

// footer stamps page numbers on every page.
func (l *layout) footer() {
	n := len(l.pages)
	for i, p := range l.pages {
		fmt.Fprintf(p, "BT /%s 8 Tf %s %s Td (%s) Tj ET\n", fontRegular,
			num(pageWidth-marginRight-60), num(marginBottom/2), escapePDF(fmt.Sprintf("Page %d of %d", i+1, n)))
	}
}

// WritePDF renders the run as a PDF 1.4 document: title, summary, per-axis
// overview table and the case list, on A4 pages with automatic breaks.
func WritePDF(w io.Writer, doc *RunDocument) error {
	l := newLayout()

	l.text(fontBold, 16, marginLeft, "Test run: "+doc.Run.Name)
	l.gap(4)
	meta := fmt.Sprintf("Project: %s    Release: %s    Status: %s    Generated: %s",
		doc.Project.Name, doc.Release.Version, doc.Run.Status, doc.GeneratedAt.UTC().Format("2006-01-02 15:04"))
	l.text(fontRegular, 9, marginLeft, meta)
	l.gap(6)

	s := doc.Stats
	l.text(fontBold, 11, marginLeft, "Summary")
	l.text(fontRegular, 9, marginLeft, fmt.Sprintf(
		"Total %d    Executed %d    Passed %d    Failed %d    Blocked %d    Not run %d",
		s.Total, s.Executed, s.Passed, s.Failed, s.Blocked, s.NotRun))
	l.text(fontRegular, 9, marginLeft, fmt.Sprintf(
		"Completion %s    Quality %s    Scope validated %s    Threshold %s",
		formatPercent(s.Completion), formatPercent(s.Quality), formatPercent(s.ScopeValidated),
		formatPercent(doc.Run.ScopeThreshold)))
	l.rule()

	if len(doc.AxisStats) > 0 {
		l.text(fontBold, 11, marginLeft, "Overview by axis")
		l.gap(2)
		cols := []float64{0, 90, 210, 260, 320, 370, 425, 475}
		l.tableRow(fontBold, 8, cols, []string{"Axis", "Value", "Total", "Executed", "Passed", "Completion", "Quality", "Scope"}, false)
		for _, as := range doc.AxisStats {
			st := as.Stats
			l.tableRow(fontRegular, 8, cols, []string{
				as.AxisLabel, as.Value,
				strconv.Itoa(st.Total), strconv.Itoa(st.Executed), strconv.Itoa(st.Passed),
				formatPercent(st.Completion), formatPercent(st.Quality), formatPercent(st.ScopeValidated),
			}, as.Highlight)
		}
		l.rule()
	}

	l.text(fontBold, 11, marginLeft, "Cases")
	cases := append(doc.Cases[:0:0], doc.Cases...)
	sort.SliceStable(cases, func(i, j int) bool { return cases[i].CaseNumber < cases[j].CaseNumber })
	for _, c := range cases {
		l.ensure(40)
		l.gap(4)
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		l.text(fontBold, 10, marginLeft, fmt.Sprintf("#%d  [%s]  %s", c.CaseNumber, c.Status, title))

		var tags []string
		for _, a := range doc.Axes {
			if v := c.AnalyticalValues.Value(a.LevelNumber); v != "" {
				tags = append(tags, a.Label+": "+v)
			}
		}
		if len(tags) > 0 {
			l.text(fontRegular, 8, marginLeft+12, strings.Join(tags, "    "))
		}
		l.paragraph("Steps", c.Steps, 9)
		l.paragraph("Expected", c.ExpectedResult, 9)
		l.paragraph("Comment", c.Comment, 9)
		if c.TestedAt != nil {
			l.text(fontRegular, 8, marginLeft+12, fmt.Sprintf("Tested by %s at %s", c.Tester(), formatTested(c.TestedAt)))
		}
	}
	l.footer()

	contents := make([][]byte, len(l.pages))
	for i, p := range l.pages {
		contents[i] = p.Bytes()
	}
	return writePDFObjects(w, contents)
}

// countingWriter tracks the byte offset for the xref table.
type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (cw *countingWriter) printf(format string, args ...any) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, format, args...)
	cw.n += int64(n)
	cw.err = err
}

func (cw *countingWriter) write(b []byte) {
	if cw.err != nil {
		return
	}
	n, err := cw.w.Write(b)
	cw.n += int64(n)
	cw.err = err
}

// writePDFObjects serializes the catalog, page tree, two Helvetica fonts
// and one page plus content stream per entry of contents.
//
// Object numbers: 1 catalog, 2 pages, 3 regular font, 4 bold font, then a
// page and its content stream for each page.
func writePDFObjects(w io.Writer, contents [][]byte) error {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	total := 4 + 2*len(contents)
	offsets := make([]int64, total+1)

	begin := func(id int) {
		offsets[id] = cw.n
		cw.printf("%d 0 obj\n", id)
	}
	end := func() { cw.printf("endobj\n") }

	cw.printf("%%PDF-1.4\n")
	cw.write([]byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'})

	begin(1)
	cw.printf("<< /Type /Catalog /Pages 2 0 R >>\n")
	end()

	kids := make([]string, len(contents))
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}
	begin(2)
	cw.printf("<< /Type /Pages /Kids [%s] /Count %d >>\n", strings.Join(kids, " "), len(contents))
	end()

	begin(3)
	cw.printf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\n")
	end()
	begin(4)
	cw.printf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>\n")
	end()

	for i, content := range contents {
		pageID, contentID := 5+2*i, 6+2*i
		begin(pageID)
		cw.printf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /%s 3 0 R /%s 4 0 R >> >> /Contents %d 0 R >>\n",
			num(pageWidth), num(pageHeight), fontRegular, fontBold, contentID)
		end()

		begin(contentID)
		cw.printf("<< /Length %d >>\nstream\n", len(content))
		cw.write(content)
		cw.printf("\nendstream\n")
		end()
	}

	xref := cw.n
	cw.printf("xref\n0 %d\n", total+1)
	cw.printf("0000000000 65535 f \n")
	for id := 1; id <= total; id++ {
		cw.printf("%010d 00000 n \n", offsets[id])
	}
	cw.printf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xref)

	if cw.err != nil {
		return fmt.Errorf("writing pdf: %w", cw.err)
	}
	return cw.w.Flush()
}

// escapePDF encodes s as the body of a PDF literal string in WinAnsi.
// Backslash and parentheses are escaped, bytes above 127 become octal
// escapes, control characters become spaces and runes outside Latin-1
// become '?'.
func escapePDF(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\\' || r == '(' || r == ')':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 32:
			b.WriteByte(' ')
		case r < 127:
			b.WriteRune(r)
		case r <= 0xFF:
			fmt.Fprintf(&b, "\\%03o", r)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

// num formats a coordinate without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// maxChars estimates how many Helvetica characters of size fit in width.
func maxChars(width, size float64) int {
	n := int(width / (size * 0.5))
	if n < 1 {
		return 1
	}
	return n
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// wrap splits s into lines of at most n runes, breaking at spaces where
// possible and honoring embedded newlines.
func wrap(s string, n int) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, word := range words {
			for len([]rune(word)) > n {
				if line != "" {
					lines = append(lines, line)
					line = ""
				}
				r := []rune(word)
				lines = append(lines, string(r[:n]))
				word = string(r[n:])
			}
			switch {
			case line == "":
				line = word
			case len([]rune(line))+1+len([]rune(word)) <= n:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
