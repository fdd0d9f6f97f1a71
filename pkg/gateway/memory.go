package gateway

import (
	"context"
	"slices"
	"sync"

	"github.com/agentstation/sheetreview/pkg/a1"
	"github.com/agentstation/sheetreview/pkg/errors"
)

// Op names a gateway operation in the call log.
type Op string

// Gateway operations.
const (
	OpGet    Op = "get"
	OpUpdate Op = "update"
)

// Call is one recorded gateway invocation.
type Call struct {
	Op      Op
	TableID string
	Range   string
	Values  [][]string
}

// Interceptor runs before a call touches the store. It runs without the
// store lock held, so it may modify the store (to simulate a concurrent
// writer) or return an error to fail the call.
type Interceptor func(ctx context.Context, call Call) error

// Memory is an in-process Gateway backed by per-sheet cell matrices. It
// records every call and supports fault injection, which makes it the fake
// remote store for tests and demos.
type Memory struct {
	mu          sync.Mutex
	tables      map[string]map[string][][]string
	calls       []Call
	interceptor Interceptor
}

var _ Gateway = (*Memory)(nil)

// NewMemory returns an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]map[string][][]string)}
}

// Load replaces the content of a sheet with a copy of values.
func (m *Memory) Load(tableID, sheet string, values [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheet(tableID, sheet, true)
	m.tables[tableID][sheet] = cloneMatrix(values)
}

// Values returns a copy of the full content of a sheet.
func (m *Memory) Values(tableID, sheet string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneMatrix(m.sheet(tableID, sheet, false))
}

// SetCell writes one cell directly, bypassing the call log and interceptor.
// col and row are 1-based.
func (m *Memory) SetCell(tableID, sheet string, col, row int, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheet(tableID, sheet, true)
	m.tables[tableID][sheet] = setCell(m.tables[tableID][sheet], col, row, value)
}

// AppendRow appends a data row, the way a form submission lands.
func (m *Memory) AppendRow(tableID, sheet string, cells []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheet(tableID, sheet, true)
	m.tables[tableID][sheet] = append(m.tables[tableID][sheet], slices.Clone(cells))
}

// Intercept installs fn to run before every subsequent call. nil removes it.
func (m *Memory) Intercept(fn Interceptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interceptor = fn
}

// FailNext makes the next call of op fail with err, once.
func (m *Memory) FailNext(op Op, err error) {
	var once sync.Once
	m.Intercept(func(_ context.Context, call Call) error {
		var out error
		if call.Op == op {
			once.Do(func() { out = err })
		}
		return out
	})
}

// Calls returns a copy of the call log.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CountCalls returns how many calls of op were recorded.
func (m *Memory) CountCalls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// GetRange implements Gateway.
func (m *Memory) GetRange(ctx context.Context, tableID, rangeSpec string) ([][]string, error) {
	call := Call{Op: OpGet, TableID: tableID, Range: rangeSpec}
	if err := m.before(ctx, call); err != nil {
		return nil, err
	}

	r, err := a1.Parse(rangeSpec)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	data := m.sheet(tableID, r.Sheet, false)
	if data == nil {
		return nil, errors.NewNotFoundError("sheet", r.Sheet)
	}
	return Extract(data, r), nil
}

// UpdateRange implements Gateway.
func (m *Memory) UpdateRange(ctx context.Context, tableID, rangeSpec string, values [][]string) error {
	call := Call{Op: OpUpdate, TableID: tableID, Range: rangeSpec, Values: cloneMatrix(values)}
	if err := m.before(ctx, call); err != nil {
		return err
	}

	r, err := a1.Parse(rangeSpec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sheet(tableID, r.Sheet, false) == nil {
		return errors.NewNotFoundError("sheet", r.Sheet)
	}
	data := m.tables[tableID][r.Sheet]
	for dy, row := range values {
		for dx, v := range row {
			data = setCell(data, r.From.Col+dx, r.From.Row+dy, v)
		}
	}
	m.tables[tableID][r.Sheet] = data
	return nil
}

func (m *Memory) before(ctx context.Context, call Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	fn := m.interceptor
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, call)
	}
	return nil
}

// sheet returns the matrix of a sheet, creating the table and sheet when
// create is set. Callers hold m.mu.
func (m *Memory) sheet(tableID, sheet string, create bool) [][]string {
	t, ok := m.tables[tableID]
	if !ok {
		if !create {
			return nil
		}
		t = make(map[string][][]string)
		m.tables[tableID] = t
	}
	data, ok := t[sheet]
	if !ok {
		if !create {
			return nil
		}
		t[sheet] = [][]string{}
	}
	if data == nil {
		data = [][]string{}
	}
	return data
}

// Extract copies the cells of r out of a full sheet matrix (row 1 at
// data[0]), omitting trailing empty cells and rows the way hosted
// spreadsheet APIs do.
func Extract(data [][]string, r a1.Range) [][]string {
	fromRow, toRow := max(r.From.Row, 1), r.From.Row
	fromCol, toCol := r.From.Col, r.From.Col
	if r.To != nil {
		toCol = r.To.Col
		toRow = r.To.Row
		if toRow == 0 {
			toRow = len(data)
		}
	}

	var out [][]string
	for y := fromRow; y <= toRow && y <= len(data); y++ {
		src := data[y-1]
		var row []string
		for x := fromCol; x <= toCol && x <= len(src); x++ {
			row = append(row, src[x-1])
		}
		for len(row) > 0 && row[len(row)-1] == "" {
			row = row[:len(row)-1]
		}
		out = append(out, row)
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out
}

func setCell(data [][]string, col, row int, value string) [][]string {
	for len(data) < row {
		data = append(data, nil)
	}
	line := data[row-1]
	for len(line) < col {
		line = append(line, "")
	}
	line[col-1] = value
	data[row-1] = line
	return data
}

func cloneMatrix(values [][]string) [][]string {
	if values == nil {
		return nil
	}
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = slices.Clone(row)
	}
	return out
}
