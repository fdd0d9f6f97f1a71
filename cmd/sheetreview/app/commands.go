package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/sheetreview/cmd/sheetreview/cmd/auth"
	"github.com/agentstation/sheetreview/cmd/sheetreview/cmd/column"
	"github.com/agentstation/sheetreview/cmd/sheetreview/cmd/comment"
	"github.com/agentstation/sheetreview/cmd/sheetreview/cmd/serve"
	"github.com/agentstation/sheetreview/cmd/sheetreview/cmd/show"
	"github.com/agentstation/sheetreview/cmd/sheetreview/cmd/watch"
	"github.com/agentstation/sheetreview/internal/server"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(withGroup(show.NewCommand(a), "core"))
	rootCmd.AddCommand(withGroup(comment.NewCommand(a), "core"))
	rootCmd.AddCommand(withGroup(watch.NewCommand(a), "core"))
	rootCmd.AddCommand(withGroup(serve.NewCommand(a, a.ServerConfig), "core"))

	// Management commands
	rootCmd.AddCommand(withGroup(column.NewCommand(), "management"))
	rootCmd.AddCommand(withGroup(auth.NewCommand(a.credentialsFile), "management"))

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
}

func withGroup(cmd *cobra.Command, group string) *cobra.Command {
	cmd.GroupID = group
	return cmd
}

// ServerConfig returns the serve settings from the configuration, on top
// of the server defaults.
func (a *App) ServerConfig() server.Config {
	cfg := server.DefaultConfig()
	s := a.config.Server
	if s.Host != "" {
		cfg.Host = s.Host
	}
	if s.Port != 0 {
		cfg.Port = s.Port
	}
	if s.Prefix != "" {
		cfg.PathPrefix = s.Prefix
	}
	cfg.CORSEnabled = s.CORS || len(s.CORSOrigins) > 0
	if len(s.CORSOrigins) > 0 {
		cfg.CORSOrigins = s.CORSOrigins
	}
	cfg.AuthEnabled = s.Auth
	if s.AuthHeader != "" {
		cfg.AuthHeader = s.AuthHeader
	}
	cfg.RateLimit = s.RateLimit
	return cfg
}

func (a *App) credentialsFile() string {
	return ExpandPath(a.config.CredentialsFile)
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("sheetreview %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
