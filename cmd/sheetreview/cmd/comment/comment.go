// Package comment provides the comment command, which writes a reviewer
// comment into the annotation column of one submission.
package comment

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/cmd/application"
	"github.com/agentstation/sheetreview/internal/cmd/output"
	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
)

// NewCommand creates the comment command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Write the comment of one submission",
		Long: `Comment opens an edit on the submission at --page, replaces its comment
with --text and saves it.

The save only goes through if the comment in the sheet is still the one
the edit started from. If someone else changed it in the meantime, both
versions are printed and the command exits non-zero without writing.

--expect makes the same check against a value you name: when the current
comment differs from it, nothing is written.`,
		Example: `  sheetreview comment --page 3 --text "Strong portfolio, invite"
  sheetreview comment --page 3 --text "Invite" --expect ""`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, _ := cmd.Flags().GetInt("page")
			text, _ := cmd.Flags().GetString("text")
			var expect *string
			if cmd.Flags().Changed("expect") {
				v, _ := cmd.Flags().GetString("expect")
				expect = &v
			}
			return run(cmd, app, page, text, expect)
		},
	}

	cmd.Flags().IntP("page", "p", 0, "1-based page (submission number)")
	cmd.Flags().StringP("text", "t", "", "comment text")
	cmd.Flags().String("expect", "", "only write when the current comment equals this value")
	_ = cmd.MarkFlagRequired("page")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}

func run(cmd *cobra.Command, app application.Application, page int, text string, expect *string) error {
	if page <= 0 {
		return errors.NewValidationError("page", page, "page must be positive")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
	defer cancel()

	c, err := app.Client(ctx, sheetreview.WithPolling(false), sheetreview.WithPage(page))
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := c.Refresh(ctx); err != nil {
		return err
	}
	if err := c.BeginEdit(); err != nil {
		return err
	}

	v := c.View()
	row := v.Session.RowIndex
	if expect != nil && v.Session.Baseline != *expect {
		_ = c.Cancel()
		return errors.NewConflictError("expect", row, v.Session.Baseline, *expect, nil)
	}

	if err := c.UpdateDraft(text); err != nil {
		return err
	}

	logger := app.Logger()
	if err := c.Save(ctx); err != nil {
		if !errors.IsConflict(err) {
			return err
		}
		if n := c.View().Session.Notice; n != nil {
			w := cmd.ErrOrStderr()
			fmt.Fprintf(w, "The comment on sheet row %d changed since the edit began. Nothing was written.\n", n.Row.SheetRow())
			if ferr := output.Write(w, output.FormatTable, output.NoticeData(*n)); ferr != nil {
				logger.Debug().Err(ferr).Msg("Failed to print conflict notice")
			}
		}
		return err
	}

	logger.Info().Int("page", page).Int("row", row).Msg("Comment saved")

	format, err := output.Resolve(app.OutputFormat())
	if err != nil {
		return err
	}
	return output.WriteView(cmd.OutOrStdout(), format, c.View())
}
