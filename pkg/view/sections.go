package view

import (
	"strings"

	"github.com/agentstation/sheetreview/pkg/table"
)

// Section is one recognized section choice on a row. Rank is the 1-based
// position of the column that named it among the configured section columns.
type Section struct {
	Label  string `json:"label" yaml:"label"`
	Rank   int    `json:"rank" yaml:"rank"`
	Column int    `json:"column" yaml:"column"`
}

// Sections extracts the ranked section choices of r. Each configured column
// whose lower-cased, trimmed value is in vocabulary contributes one Section.
// Columns outside the row and unrecognized values are skipped.
func Sections(r table.Row, columns []int, vocabulary []string) []Section {
	known := make(map[string]struct{}, len(vocabulary))
	for _, v := range vocabulary {
		known[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}

	var out []Section
	for i, col := range columns {
		value := strings.ToLower(strings.TrimSpace(r.Field(col)))
		if _, ok := known[value]; !ok || value == "" {
			continue
		}
		out = append(out, Section{Label: value, Rank: i + 1, Column: col})
	}
	return out
}
