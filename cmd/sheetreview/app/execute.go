package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute parses args and runs the matching command under ctx.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand builds the command tree. Tests run it directly.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "sheetreview",
		Short:   "Review spreadsheet submissions one row at a time",
		Version: a.version,
		Long: `Sheetreview pages through the rows of a shared spreadsheet, one
submission at a time, and writes a reviewer comment into the annotation
column of each row.

The table is polled for remote changes. When someone else edits the
comment you are drafting, the save is refused and both versions are
shown so nothing is overwritten silently.

Rows come from Google Sheets (default) or a local .xlsx workbook.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Review Commands:"},
		&cobra.Group{ID: "management", Title: "Setup Commands:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.sheetreview.yaml)")
	flags.BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	flags.StringVarP(&a.config.Format, "format", "o", "", "output format: table, json, yaml, wide")
	flags.StringVar(&a.config.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	// Table source flags. Empty values keep the configured ones.
	flags.String("backend", "", "table backend: sheets, xlsx")
	flags.String("spreadsheet", "", "spreadsheet ID (sheets backend)")
	flags.String("sheet", "", "sheet (tab) name")
	flags.String("workbook", "", "path to an .xlsx workbook (xlsx backend)")
	flags.String("credentials", "", "path to a Google credentials file")

	rootCmd.SetVersionTemplate("sheetreview {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand runs before every command. The global flags are bound to
// a.config, so they are captured before --config replaces it, then
// reapplied on top of the file.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	bound := *a.config
	if bound.ConfigFile != "" {
		loaded, err := LoadConfigFile(bound.ConfigFile)
		if err != nil {
			return err
		}
		loaded.ConfigFile = bound.ConfigFile
		a.config = loaded
	}
	a.config.UpdateFromFlags(bound.Verbose, bound.Quiet, bound.NoColor, bound.Format, bound.LogLevel)

	src := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	a.config.UpdateSource(src("backend"), src("spreadsheet"), src("sheet"), src("workbook"), src("credentials"))

	logger := NewLogger(a.config, cmd.Name())
	a.logger = &logger
	return nil
}

// ExitOnError prints err to stderr and exits 1. A nil err is a no-op.
func ExitOnError(err error) {
	if err == nil {
		return
	}
	_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
	os.Exit(1)
}
