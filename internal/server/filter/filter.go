// Package filter parses row filter criteria from API requests.
package filter

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/agentstation/sheetreview/pkg/a1"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/view"
)

// Body is the JSON form of a filter criterion. An empty body clears the
// filter.
type Body struct {
	Column *Column `json:"column,omitempty"`
	Value  string  `json:"value"`
}

// Column is a 0-based field index. In JSON it may be a number or a column
// label such as "C".
type Column int

// UnmarshalJSON accepts 2 or "C".
func (c *Column) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := ParseColumn(s)
	if err != nil {
		return err
	}
	*c = Column(n)
	return nil
}

// Criterion converts the body. A body without a column is no filter.
func (b Body) Criterion() *view.Criterion {
	if b.Column == nil {
		return nil
	}
	return &view.Criterion{Column: int(*b.Column), Value: b.Value}
}

// ParseColumn reads a 0-based field index from either a decimal index or
// a column label ("A" is 0).
func ParseColumn(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.NewValidationError("column", s, "column is empty")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, errors.NewValidationError("column", s, "column index must be non-negative")
		}
		return n, nil
	}
	n, err := a1.ColumnNumber(s)
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

// FromQuery reads ?column=&value= into a criterion. No column means no
// filter.
func FromQuery(r *http.Request) (*view.Criterion, error) {
	q := r.URL.Query()
	col := q.Get("column")
	if col == "" {
		return nil, nil
	}
	n, err := ParseColumn(col)
	if err != nil {
		return nil, err
	}
	return &view.Criterion{Column: n, Value: q.Get("value")}, nil
}
