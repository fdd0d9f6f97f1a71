// Package application provides a memory-backed Application for command and
// server tests.
package application

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview"
	app "github.com/agentstation/sheetreview/cmd/application"
	"github.com/agentstation/sheetreview/internal/metrics"
	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/gateway"
)

// Default table coordinates of a Mock.
const (
	TableID = "review-sheet"
	Sheet   = constants.DefaultSheetName
)

// Mock serves clients on an in-memory gateway. Clients do not poll unless
// the caller passes sheetreview.WithPolling(true).
//
// Example Usage:
//
//	mock := application.NewMock([][]string{
//	    {"Name", "Track", "Comment"},
//	    {"Ada", "ai", ""},
//	})
//	cmd := show.NewCommand(mock)
//	// ... run cmd, then inspect mock.Gateway
type Mock struct {
	Gateway *gateway.Memory
	Format  string

	// Options are applied after the defaults and before per-call options.
	Options []sheetreview.Option

	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewMock creates a Mock whose sheet holds values.
func NewMock(values [][]string) *Mock {
	gw := gateway.NewMemory()
	gw.Load(TableID, Sheet, values)
	return &Mock{
		Gateway: gw,
		Format:  constants.FormatJSON,
		metrics: metrics.New(),
		logger:  zerolog.Nop(),
	}
}

// Client creates a client on the mock's gateway.
func (m *Mock) Client(_ context.Context, opts ...sheetreview.Option) (sheetreview.Client, error) {
	all := []sheetreview.Option{
		sheetreview.WithSpreadsheetID(TableID),
		sheetreview.WithSheetName(Sheet),
		sheetreview.WithPolling(false),
		sheetreview.WithPollInterval(time.Hour),
		sheetreview.WithRecorder(m.metrics),
		sheetreview.WithLogger(&m.logger),
	}
	all = append(all, m.Options...)
	return sheetreview.New(m.Gateway, append(all, opts...)...)
}

// Metrics returns the mock's collectors.
func (m *Mock) Metrics() *metrics.Metrics { return m.metrics }

// Logger returns a no-op logger.
func (m *Mock) Logger() *zerolog.Logger { return &m.logger }

// OutputFormat returns Format.
func (m *Mock) OutputFormat() string { return m.Format }

// Version returns "dev".
func (m *Mock) Version() string { return "dev" }

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Application at compile time.
var _ app.Application = (*Mock)(nil)
