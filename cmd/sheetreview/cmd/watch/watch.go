// Package watch provides the watch command, which follows the remote table
// and logs every change until interrupted.
package watch

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/cmd/application"
	"github.com/agentstation/sheetreview/pkg/session"
	"github.com/agentstation/sheetreview/pkg/table"
)

// NewCommand creates the watch command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the table and log changes",
		Long: `Watch polls the remote table and logs rows as they are added, updated
or removed, plus any change to the submission at --page, until
interrupted with Ctrl+C.`,
		Example: `  sheetreview watch
  sheetreview watch --page 4 --interval 30s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, _ := cmd.Flags().GetInt("page")
			var opts []sheetreview.Option
			opts = append(opts, sheetreview.WithPage(page))
			if cmd.Flags().Changed("interval") {
				interval, _ := cmd.Flags().GetDuration("interval")
				opts = append(opts, sheetreview.WithPollInterval(interval))
			}
			return run(cmd, app, opts...)
		},
	}

	cmd.Flags().IntP("page", "p", 1, "1-based page to follow")
	cmd.Flags().Duration("interval", 0, "poll interval (default from config)")

	return cmd
}

func run(cmd *cobra.Command, app application.Application, opts ...sheetreview.Option) error {
	ctx := cmd.Context()
	logger := app.Logger()

	c, err := app.Client(ctx, append([]sheetreview.Option{sheetreview.WithPolling(false)}, opts...)...)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	c.OnRowAdded(func(row table.Row) {
		logger.Info().Int("row", row.Index).Strs("fields", row.Fields).Msg("Row added")
	})
	c.OnRowUpdated(func(old, updated table.Row) {
		logger.Info().Int("row", updated.Index).Strs("old", old.Fields).Strs("new", updated.Fields).Msg("Row updated")
	})
	c.OnRowRemoved(func(row table.Row) {
		logger.Info().Int("row", row.Index).Msg("Row removed")
	})
	c.OnViewChanged(func(row table.Row) {
		logger.Info().Int("row", row.Index).Msg("Submission in view changed")
	})
	c.OnConflict(func(n session.Notice) {
		logger.Warn().
			Int("row", n.RowIndex).
			Str("source", string(n.Source)).
			Str("remote", n.RemoteValue).
			Msg("Conflict")
	})
	c.OnPollFailed(func(err error) {
		logger.Warn().Err(err).Msg("Poll failed")
	})

	if err := c.PollingOn(); err != nil {
		return err
	}
	logger.Info().Msg("Watching for changes, press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("Stopped watching")
	return nil
}
