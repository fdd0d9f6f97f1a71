// Package column provides the column command, which converts between column
// numbers and spreadsheet column labels.
package column

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/sheetreview/pkg/a1"
	"github.com/agentstation/sheetreview/pkg/errors"
)

// NewCommand creates the column command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "column [N]",
		Short: "Convert between column numbers and labels",
		Long: `Column prints the label of a 1-based column number, or with --label the
number of a column label.`,
		Example: `  sheetreview column 60        # BH
  sheetreview column --label AA # 27`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, _ := cmd.Flags().GetString("label")
			switch {
			case label != "" && len(args) > 0:
				return errors.NewValidationError("label", label, "give either N or --label, not both")
			case label != "":
				n, err := a1.ColumnNumber(label)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			case len(args) == 1:
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.NewValidationError("N", args[0], "column number must be an integer")
				}
				letter, err := a1.ColumnLetter(n)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), letter)
				return nil
			default:
				return cmd.Help()
			}
		},
	}

	cmd.Flags().StringP("label", "l", "", "column label to convert to a number")

	return cmd
}
