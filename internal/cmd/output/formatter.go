// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
)

// Format names an output encoding.
type Format string

// Supported formats. Wide is a table that does not truncate answers.
const (
	FormatTable Format = constants.FormatTable
	FormatWide  Format = constants.FormatWide
	FormatJSON  Format = constants.FormatJSON
	FormatYAML  Format = constants.FormatYAML
)

// Tabular reports whether f prints a table rather than a document.
func (f Format) Tabular() bool {
	return f == FormatTable || f == FormatWide || f == ""
}

// Data is a left-aligned table.
type Data struct {
	Headers []string
	Rows    [][]string
}

// Write encodes v in format. In a tabular format a Data value becomes a
// table and anything else is printed as indented JSON.
func Write(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, v)
	case FormatYAML:
		out, err := yaml.MarshalWithOptions(v, yaml.Indent(2), yaml.IndentSequence(false))
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}

	switch d := v.(type) {
	case Data:
		return writeTable(w, d)
	case *Data:
		return writeTable(w, *d)
	}
	return writeJSON(w, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, d Data) error {
	left := tw.CellAlignment{Global: tw.AlignLeft}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Header: tw.CellConfig{Alignment: left},
		Row:    tw.CellConfig{Alignment: left},
	}))

	if len(d.Headers) > 0 {
		table.Header(toAny(d.Headers)...)
	}
	for _, row := range d.Rows {
		if err := table.Append(toAny(row)...); err != nil {
			return err
		}
	}
	return table.Render()
}

func toAny(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

// Resolve validates an explicit --format value. An empty value picks a
// table on a terminal and JSON when stdout is piped.
func Resolve(explicit string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(explicit)))
	switch format {
	case FormatTable, FormatWide, FormatJSON, FormatYAML:
		return format, nil
	case "":
		fd := os.Stdout.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return FormatTable, nil
		}
		return FormatJSON, nil
	}
	return "", errors.NewValidationError("format", explicit,
		fmt.Sprintf("must be one of table, wide, json or yaml, got %q", explicit))
}
