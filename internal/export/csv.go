package export

import (
	"bytes"
	"io"
	"strings"
)

const bom = "\uFEFF"

// Table is a CSV document built row by row. Rows may have different widths;
// a nil row renders as an empty line.
type Table struct {
	rows [][]string
}

// Row appends one row.
func (t *Table) Row(fields ...string) *Table {
	t.rows = append(t.rows, fields)
	return t
}

// Blank appends an empty row.
func (t *Table) Blank() *Table {
	t.rows = append(t.rows, nil)
	return t
}

func (t *Table) Rows() [][]string { return t.rows }

// WriteTo writes the table as UTF-8 with a BOM. Every field is wrapped in
// double quotes with embedded quotes doubled, and rows are joined by "\n"
// with no trailing newline.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString(bom)
	for i, row := range t.rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, field := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(field, `"`, `""`))
			b.WriteByte('"')
		}
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Bytes renders the table.
func (t *Table) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = t.WriteTo(&buf)
	return buf.Bytes()
}

// StripBOM removes a leading UTF-8 byte order mark.
func StripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte(bom))
}
