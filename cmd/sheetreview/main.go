// Command sheetreview reviews spreadsheet submissions one row at a time.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentstation/sheetreview/cmd/sheetreview/app"
)

// Set by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

// cleanupTimeout bounds App.Shutdown once a command has returned.
const cleanupTimeout = 5 * time.Second

func main() {
	a, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	// SIGINT and SIGTERM stop watch and serve cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = a.Execute(ctx, os.Args[1:])
	stop()

	cleanup, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	if serr := a.Shutdown(cleanup); serr != nil {
		a.Logger().Error().Err(serr).Msg("Shutdown error")
	}
	cancel()

	app.ExitOnError(err)
}
