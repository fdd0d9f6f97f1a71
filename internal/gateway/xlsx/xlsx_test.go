package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/logging"
	"github.com/agentstation/sheetreview/pkg/session"
)

const sheet = "Form Responses 1"

func newWorkbook(t *testing.T, rows ...[]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "responses.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func cellValue(t *testing.T, path, cell string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(sheet, cell)
	require.NoError(t, err)
	return v
}

func TestOpen(t *testing.T) {
	_, err := Open("", nil)
	assert.True(t, errors.IsValidationError(err))

	_, err = Open(filepath.Join(t.TempDir(), "missing.xlsx"), nil)
	assert.True(t, errors.IsNotFound(err))
}

func TestGetRange(t *testing.T) {
	path := newWorkbook(t,
		[]any{"Name", "Track", "Comment"},
		[]any{"Ada", "ai"},
		[]any{"Grace", "cyber", "strong"},
	)
	wb, err := Open(path, logging.NewNopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	values, err := wb.GetRange(ctx, "local", "'Form Responses 1'!A1:BH")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Name", "Track", "Comment"},
		{"Ada", "ai"},
		{"Grace", "cyber", "strong"},
	}, values)

	values, err = wb.GetRange(ctx, "local", "'Form Responses 1'!C3")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"strong"}}, values)

	_, err = wb.GetRange(ctx, "local", "Missing!A1")
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateRange(t *testing.T) {
	path := newWorkbook(t,
		[]any{"Name", "Comment"},
		[]any{"Ada"},
	)
	wb, err := Open(path, logging.NewNopLogger())
	require.NoError(t, err)

	require.NoError(t, wb.UpdateRange(context.Background(), "local", "'Form Responses 1'!B2", [][]string{{"=1+1"}}))
	assert.Equal(t, "=1+1", cellValue(t, path, "B2"))
	assert.Equal(t, "Ada", cellValue(t, path, "A2"))
}

// The engine runs unchanged on a workbook: an external edit between polls
// surfaces as a conflict and a clean save lands in the file.
func TestEngineOverWorkbook(t *testing.T) {
	logging.DisableLoggingForTest(t)
	path := newWorkbook(t,
		[]any{"Name", "Comment"},
		[]any{"Ada", "first look"},
	)
	wb, err := Open(path, logging.NewNopLogger())
	require.NoError(t, err)

	c, err := sheetreview.New(wb,
		sheetreview.WithSpreadsheetID("local"),
		sheetreview.WithPolling(false),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.BeginEdit())
	require.NoError(t, c.UpdateDraft("invite"))
	require.NoError(t, c.Save(ctx))
	assert.Equal(t, "invite", cellValue(t, path, "B2"))

	require.NoError(t, c.BeginEdit())
	require.NoError(t, c.UpdateDraft("reject"))
	require.NoError(t, wb.UpdateRange(ctx, "local", "'Form Responses 1'!B2", [][]string{{"someone else"}}))
	require.NoError(t, c.Refresh(ctx))

	v := c.View()
	assert.Equal(t, session.ConflictPending, v.Session.State)
	assert.Equal(t, "someone else", v.Session.Notice.RemoteValue)
	assert.Equal(t, "reject", v.Session.Draft)
}
