// Package application defines what commands and the API server need from
// the running program.
//
// Commands accept an Application instead of the concrete app so tests can
// hand them a memory-backed implementation:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, _ []string) error {
//	            c, err := app.Client(cmd.Context(), sheetreview.WithPolling(false))
//	            if err != nil {
//	                return err
//	            }
//	            defer c.Close()
//	            // ... use c
//	            return nil
//	        },
//	    }
//	}
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/internal/metrics"
)

// Application provides the dependencies commands share. All methods must be
// safe for concurrent use.
type Application interface {
	// Client creates a new review client on the configured gateway. The
	// configured table, sheet, polling and cache options are applied first;
	// opts override them. Every call returns a new client the caller closes.
	Client(ctx context.Context, opts ...sheetreview.Option) (sheetreview.Client, error)

	// Metrics returns the process-wide collectors.
	Metrics() *metrics.Metrics

	// Logger returns the configured logger.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
