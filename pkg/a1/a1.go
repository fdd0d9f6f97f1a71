// Package a1 converts between column ordinals and spreadsheet column labels
// and builds and parses A1-notation range specs such as
// 'Form Responses 1'!A1:BH or Sheet1!BH5.
//
// Column labels use bijective base-26: 1 is "A", 26 is "Z", 27 is "AA",
// 702 is "ZZ" and 703 is "AAA". There is no zero digit.
package a1

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/agentstation/sheetreview/pkg/errors"
)

// ColumnLetter returns the label of the 1-based column ordinal n.
func ColumnLetter(n int) (string, error) {
	if n <= 0 {
		return "", errors.NewValidationError("column", n, "column ordinal must be positive")
	}

	var buf [maxLabel]byte
	i := len(buf)
	for n > 0 {
		n--
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:]), nil
}

// MustColumnLetter is ColumnLetter for ordinals known to be valid. It panics
// on n <= 0.
func MustColumnLetter(n int) string {
	s, err := ColumnLetter(n)
	if err != nil {
		panic(err)
	}
	return s
}

// Ordinal reads a column given either as a label ("BH") or as a 1-based
// number ("60") and returns its 1-based ordinal.
func Ordinal(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, errors.NewValidationError("column", s, "column ordinal must be positive")
		}
		return n, nil
	}
	return ColumnNumber(s)
}

// ColumnNumber returns the 1-based ordinal of a column label. Lower-case
// letters are accepted.
func ColumnNumber(label string) (int, error) {
	if label == "" {
		return 0, errors.NewValidationError("column", label, "column label is empty")
	}
	n := 0
	for _, r := range label {
		var d int
		switch {
		case r >= 'A' && r <= 'Z':
			d = int(r-'A') + 1
		case r >= 'a' && r <= 'z':
			d = int(r-'a') + 1
		default:
			return 0, errors.NewValidationError("column", label, fmt.Sprintf("invalid character %q in column label", r))
		}
		if n > (math.MaxInt-d)/26 {
			return 0, errors.NewValidationError("column", label, "column label out of range")
		}
		n = n*26 + d
	}
	return n, nil
}

// maxLabel is the longest label of a 64-bit int ordinal.
const maxLabel = 14

// Ref is one corner of a range. Row 0 means "open-ended" (whole column).
type Ref struct {
	Col int
	Row int
}

// String renders the reference, e.g. "BH12" or "BH".
func (r Ref) String() string {
	s := MustColumnLetter(r.Col)
	if r.Row > 0 {
		s += strconv.Itoa(r.Row)
	}
	return s
}

// Range is a parsed A1 range spec. To is nil for single-cell specs.
type Range struct {
	Sheet string
	From  Ref
	To    *Ref
}

// String renders the range back into A1 notation with the sheet name quoted
// when required.
func (r Range) String() string {
	var b strings.Builder
	if r.Sheet != "" {
		b.WriteString(QuoteSheet(r.Sheet))
		b.WriteByte('!')
	}
	b.WriteString(r.From.String())
	if r.To != nil {
		b.WriteByte(':')
		b.WriteString(r.To.String())
	}
	return b.String()
}

// IsCell reports whether the range addresses exactly one cell.
func (r Range) IsCell() bool {
	if r.From.Row == 0 {
		return false
	}
	return r.To == nil || (*r.To == r.From)
}

// Cell builds the spec of a single cell.
func Cell(sheet string, col, row int) (string, error) {
	if err := checkRef(col, row, true); err != nil {
		return "", err
	}
	return Range{Sheet: sheet, From: Ref{Col: col, Row: row}}.String(), nil
}

// Span builds a rectangular range spec. toRow 0 leaves the range open at the
// bottom so every populated row is returned.
func Span(sheet string, fromCol, fromRow, toCol, toRow int) (string, error) {
	if err := checkRef(fromCol, fromRow, true); err != nil {
		return "", err
	}
	if err := checkRef(toCol, toRow, false); err != nil {
		return "", err
	}
	if toCol < fromCol || (toRow != 0 && toRow < fromRow) {
		return "", errors.NewValidationError("range", nil, "range end precedes range start")
	}
	return Range{
		Sheet: sheet,
		From:  Ref{Col: fromCol, Row: fromRow},
		To:    &Ref{Col: toCol, Row: toRow},
	}.String(), nil
}

func checkRef(col, row int, rowRequired bool) error {
	if col <= 0 {
		return errors.NewValidationError("column", col, "column ordinal must be positive")
	}
	if row < 0 || (rowRequired && row == 0) {
		return errors.NewValidationError("row", row, "row must be positive")
	}
	return nil
}

// QuoteSheet wraps a sheet name in single quotes when it contains anything
// other than letters, digits and underscores. Embedded quotes are doubled.
func QuoteSheet(name string) string {
	plain := name != ""
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// Parse reads a spec of the form [Sheet!]<Col><Row>[:<Col>[<Row>]].
func Parse(spec string) (Range, error) {
	var r Range
	rest := spec

	if i := strings.LastIndexByte(spec, '!'); i >= 0 {
		sheet, err := unquoteSheet(spec[:i])
		if err != nil {
			return Range{}, err
		}
		r.Sheet = sheet
		rest = spec[i+1:]
	}

	from, to, hasTo := strings.Cut(rest, ":")
	ref, err := parseRef(from)
	if err != nil {
		return Range{}, err
	}
	if ref.Row == 0 {
		return Range{}, errors.NewValidationError("range", spec, "range start must include a row")
	}
	r.From = ref

	if hasTo {
		end, err := parseRef(to)
		if err != nil {
			return Range{}, err
		}
		r.To = &end
	}
	return r, nil
}

func unquoteSheet(s string) (string, error) {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
	}
	if s == "" || strings.ContainsRune(s, '\'') {
		return "", errors.NewValidationError("range", s, "malformed sheet name")
	}
	return s, nil
}

func parseRef(s string) (Ref, error) {
	i := 0
	for i < len(s) && (s[i] >= 'A' && s[i] <= 'Z' || s[i] >= 'a' && s[i] <= 'z') {
		i++
	}
	col, err := ColumnNumber(s[:i])
	if err != nil {
		return Ref{}, err
	}
	if i == len(s) {
		return Ref{Col: col}, nil
	}
	row, err := strconv.Atoi(s[i:])
	if err != nil || row <= 0 {
		return Ref{}, errors.NewValidationError("range", s, "invalid row number")
	}
	return Ref{Col: col, Row: row}, nil
}
