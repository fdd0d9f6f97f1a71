// Package table holds the in-memory model of the remote spreadsheet: a
// header row plus ordered data rows whose fields are normalized to the
// header width, with "" as the single canonical absent value.
package table

import (
	"slices"

	"github.com/agentstation/utc"
)

// Row is one data row. Index is the 1-based position among data rows; the
// sheet row number is Index+1 because the header occupies sheet row 1.
type Row struct {
	Index  int      `json:"index" yaml:"index"`
	Fields []string `json:"fields" yaml:"fields"`
}

// SheetRow returns the 1-based sheet row number of r.
func (r Row) SheetRow() int {
	return r.Index + 1
}

// Field returns the field at the 0-based column i, or "" when out of range.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// Clone returns a deep copy of r.
func (r Row) Clone() Row {
	return Row{Index: r.Index, Fields: slices.Clone(r.Fields)}
}

// With returns a copy of r whose field at column i is value. The row is
// padded when i lies past the end.
func (r Row) With(i int, value string) Row {
	out := r.Clone()
	for len(out.Fields) <= i {
		out.Fields = append(out.Fields, "")
	}
	out.Fields[i] = value
	return out
}

// Equal compares two rows field by field with "" and a missing field
// treated as the same value.
func (r Row) Equal(o Row) bool {
	n := max(len(r.Fields), len(o.Fields))
	for i := 0; i < n; i++ {
		if r.Field(i) != o.Field(i) {
			return false
		}
	}
	return true
}

// Table is an immutable-by-convention snapshot of the remote table.
type Table struct {
	Headers   []string `json:"headers" yaml:"headers"`
	Rows      []Row    `json:"rows" yaml:"rows"`
	FetchedAt utc.Time `json:"fetched_at" yaml:"fetched_at"`
}

// FromValues builds a Table from the raw 2-D cell matrix returned by a
// gateway. The first row is the header; an empty matrix yields an empty
// table. Every data row is right-padded with "" to the header width and
// truncated beyond it. Trailing rows whose fields are all empty are dropped,
// interior blank rows keep their position so indexes stay stable.
func FromValues(values [][]string) Table {
	t := Table{FetchedAt: utc.Now()}
	if len(values) == 0 {
		return t
	}

	t.Headers = slices.Clone(values[0])
	width := len(t.Headers)

	last := len(values) - 1
	for last > 0 && blank(values[last]) {
		last--
	}

	t.Rows = make([]Row, 0, last)
	for i := 1; i <= last; i++ {
		t.Rows = append(t.Rows, Row{Index: i, Fields: Normalize(values[i], width)})
	}
	return t
}

// Normalize pads or truncates cells to exactly width fields.
func Normalize(cells []string, width int) []string {
	out := make([]string, width)
	copy(out, cells)
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// Width is the number of columns, equal to the header count.
func (t Table) Width() int {
	return len(t.Headers)
}

// Len is the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Row returns the row with stable index, if present.
func (t Table) Row(index int) (Row, bool) {
	// Rows are dense and ordered by Index, so the position is index-1.
	if index >= 1 && index <= len(t.Rows) && t.Rows[index-1].Index == index {
		return t.Rows[index-1], true
	}
	for _, r := range t.Rows {
		if r.Index == index {
			return r, true
		}
	}
	return Row{}, false
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := Table{
		Headers:   slices.Clone(t.Headers),
		Rows:      make([]Row, len(t.Rows)),
		FetchedAt: t.FetchedAt,
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// WithField returns a copy of t with one field of the row at index replaced.
// Other rows share their backing arrays with t, which is safe because rows
// are never mutated in place.
func (t Table) WithField(index, column int, value string) (Table, bool) {
	out := t
	out.Rows = slices.Clone(t.Rows)
	for i, r := range out.Rows {
		if r.Index == index {
			out.Rows[i] = r.With(column, value)
			return out, true
		}
	}
	return t, false
}
