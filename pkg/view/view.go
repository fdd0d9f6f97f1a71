// Package view derives what a reviewer sees from a table snapshot: the
// filtered row sequence, the row at a 1-based page, pagination flags and the
// ranked sections a row applied to. Everything here is pure and recomputed
// on every snapshot change.
package view

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/table"
)

// Criterion restricts the view to rows whose field at Column (0-based)
// equals Value, compared case-insensitively after trimming whitespace.
type Criterion struct {
	Column int    `json:"column" yaml:"column"`
	Value  string `json:"value" yaml:"value"`
}

// Validate checks the criterion against a table width. A width of 0 skips
// the upper bound check (the header has not been loaded yet).
func (c *Criterion) Validate(width int) error {
	if c == nil {
		return nil
	}
	if c.Column < 0 || (width > 0 && c.Column >= width) {
		return errors.NewValidationError("filter.column", c.Column, "filter column out of range")
	}
	return nil
}

// Matches reports whether r passes the criterion. A nil criterion passes
// every row.
func (c *Criterion) Matches(r table.Row) bool {
	if c == nil {
		return true
	}
	return fold(r.Field(c.Column)) == fold(c.Value)
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Filter returns the rows of t that pass c, in table order.
func Filter(t table.Table, c *Criterion) []table.Row {
	if c == nil {
		return t.Rows
	}
	out := make([]table.Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Resolve returns the row at the 1-based page of rows. A page outside
// [1, len(rows)] resolves to nothing; that is the loading/empty state, not
// an error.
func Resolve(rows []table.Row, page int) (table.Row, bool) {
	if page < 1 || page > len(rows) {
		return table.Row{}, false
	}
	return rows[page-1], true
}

// Position returns the 1-based page of the row with stable index in rows,
// or 0 when it is not part of the sequence.
func Position(rows []table.Row, index int) int {
	for i, r := range rows {
		if r.Index == index {
			return i + 1
		}
	}
	return 0
}

// Pagination is the navigation state around a page.
type Pagination struct {
	Page        int  `json:"page" yaml:"page"`
	Total       int  `json:"total" yaml:"total"`
	HasPrevious bool `json:"has_previous" yaml:"has_previous"`
	HasNext     bool `json:"has_next" yaml:"has_next"`
}

// Paginate computes navigation flags for page within total rows.
func Paginate(page, total int) Pagination {
	return Pagination{
		Page:        page,
		Total:       total,
		HasPrevious: page > 1,
		HasNext:     page < total,
	}
}
