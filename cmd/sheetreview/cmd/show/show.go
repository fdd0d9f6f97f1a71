// Package show provides the show command.
package show

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/cmd/application"
	"github.com/agentstation/sheetreview/internal/cmd/output"
	"github.com/agentstation/sheetreview/pkg/a1"
	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/view"
)

// NewCommand creates the show command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print one submission",
		Long: `Show fetches the table once and prints the submission at --page.

Pages are 1-based and count the rows left after filtering, so with a
filter the same page can name a different sheet row. A page past the end
prints "No submission at page N".`,
		Example: `  sheetreview show --page 3
  sheetreview show --filter-column Track --filter-value ai
  sheetreview show --page 2 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, _ := cmd.Flags().GetInt("page")
			column, _ := cmd.Flags().GetString("filter-column")
			value, _ := cmd.Flags().GetString("filter-value")
			return run(cmd, app, page, column, value)
		},
	}

	cmd.Flags().IntP("page", "p", 1, "1-based page (submission number)")
	cmd.Flags().String("filter-column", "", "filter column as a label (B) or 1-based number (2)")
	cmd.Flags().String("filter-value", "", "value the filter column must equal, ignoring case")

	return cmd
}

func run(cmd *cobra.Command, app application.Application, page int, column, value string) error {
	format, err := output.Resolve(app.OutputFormat())
	if err != nil {
		return err
	}
	criterion, err := Criterion(column, value)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
	defer cancel()

	c, err := app.Client(ctx,
		sheetreview.WithPolling(false),
		sheetreview.WithPage(page),
		sheetreview.WithFilter(criterion),
	)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := c.Refresh(ctx); err != nil {
		return err
	}
	if _, err := c.Identity(ctx); err != nil {
		app.Logger().Debug().Err(err).Msg("Reviewer identity unavailable")
	}

	return output.WriteView(cmd.OutOrStdout(), format, c.View())
}

// Criterion builds a filter from the --filter-column and --filter-value
// flags. Both empty means no filter.
func Criterion(column, value string) (*view.Criterion, error) {
	if column == "" {
		if value != "" {
			return nil, errors.NewValidationError("filter-column", column, "--filter-value needs --filter-column")
		}
		return nil, nil
	}
	n, err := a1.Ordinal(column)
	if err != nil {
		return nil, errors.WrapValidation("filter-column", err)
	}
	return &view.Criterion{Column: n - 1, Value: value}, nil
}
