// Package xlsx implements gateway.Gateway on a local .xlsx workbook.
//
// The workbook is reopened on every call, so edits made by a spreadsheet
// application between polls are picked up the same way a hosted sheet's
// remote changes are. One workbook is one table; the table ID passed to
// the gateway methods is only used in errors and logs.
package xlsx

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/sheetreview/pkg/a1"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/gateway"
	"github.com/agentstation/sheetreview/pkg/logging"
)

var _ gateway.Gateway = (*Workbook)(nil)

// Workbook reads and writes ranges of one .xlsx file.
type Workbook struct {
	path   string
	logger zerolog.Logger

	// mu serializes file access within this process.
	mu sync.Mutex
}

// Open returns a Workbook for path. The file must exist.
func Open(path string, logger *zerolog.Logger) (*Workbook, error) {
	if path == "" {
		return nil, errors.NewValidationError("workbook", path, "workbook path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("workbook", path)
		}
		return nil, errors.WrapIO("stat", path, err)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Workbook{
		path:   path,
		logger: logger.With().Str("backend", "xlsx").Str("workbook", path).Logger(),
	}, nil
}

// Path returns the workbook file path.
func (w *Workbook) Path() string {
	return w.path
}

// GetRange implements gateway.Gateway.
func (w *Workbook) GetRange(ctx context.Context, _ string, rangeSpec string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := a1.Parse(rangeSpec)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, errors.WrapIO("open", w.path, err)
	}
	defer f.Close()

	sheet, err := w.sheet(f, r.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.WrapIO("read", w.path, err)
	}
	return gateway.Extract(rows, r), nil
}

// UpdateRange implements gateway.Gateway. Values are stored as strings.
func (w *Workbook) UpdateRange(ctx context.Context, _ string, rangeSpec string, values [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := a1.Parse(rangeSpec)
	if err != nil {
		return err
	}
	if r.From.Row == 0 {
		return errors.NewValidationError("range", rangeSpec, "update range needs a start row")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return errors.WrapIO("open", w.path, err)
	}
	defer f.Close()

	sheet, err := w.sheet(f, r.Sheet)
	if err != nil {
		return err
	}

	for dy, row := range values {
		for dx, v := range row {
			cell, err := excelize.CoordinatesToCellName(r.From.Col+dx, r.From.Row+dy)
			if err != nil {
				return errors.WrapValidation("range", err)
			}
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return errors.WrapIO("write", w.path, err)
			}
		}
	}

	if err := f.Save(); err != nil {
		return errors.WrapIO("save", w.path, err)
	}
	w.logger.Debug().Str("range", rangeSpec).Msg("Range updated")
	return nil
}

// sheet resolves the worksheet name of a range. An empty name selects the
// first sheet, the way an unqualified A1 range does in a hosted sheet.
func (w *Workbook) sheet(f *excelize.File, name string) (string, error) {
	if name == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return "", errors.NewNotFoundError("sheet", "")
		}
		return list[0], nil
	}
	idx, err := f.GetSheetIndex(name)
	if err != nil || idx < 0 {
		return "", errors.NewNotFoundError("sheet", name)
	}
	return name, nil
}
