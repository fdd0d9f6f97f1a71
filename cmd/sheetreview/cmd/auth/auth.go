// Package auth provides the auth commands, which report the Google
// credentials the Sheets backend signs in with.
package auth

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/sheetreview/cmd/application"
	"github.com/agentstation/sheetreview/internal/auth/adc"
	"github.com/agentstation/sheetreview/internal/cmd/output"
	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
)

// NewCommand creates the auth command. credentials returns the configured
// credentials file, empty for the default lookup.
func NewCommand(app application.Application, credentials func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Show Google credentials status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(NewStatusCommand(app, credentials))
	cmd.AddCommand(NewVerifyCommand(app))
	return cmd
}

// NewStatusCommand creates the auth status subcommand.
func NewStatusCommand(app application.Application, credentials func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which credentials would be used",
		Long: `Display the Application Default Credentials the Sheets backend finds.

The command inspects the credentials file and gcloud configuration but
does not make API calls. Use 'sheetreview auth verify' to test them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			details := adc.BuildDetails(credentials())

			format, err := output.Resolve(app.OutputFormat())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !format.Tabular() {
				return output.Write(w, format, statusOf(details))
			}

			fmt.Fprintln(w, adc.FormatBrief(details))
			if !details.SignedIn() {
				return nil
			}
			return output.Write(w, output.FormatTable, DetailsData(details))
		},
	}
}

// NewVerifyCommand creates the auth verify subcommand.
func NewVerifyCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Fetch the table once to test the credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
			defer cancel()

			c, err := app.Client(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if err := c.Refresh(ctx); err != nil {
				if errors.IsUnauthenticated(err) {
					return errors.WrapResource("verify", "credentials", "", err)
				}
				return err
			}

			who, err := c.Identity(ctx)
			if err != nil || who == "" {
				who = "unknown reviewer"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Signed in, reviewing as %s (%d rows)\n", who, c.Table().Len())
			return nil
		},
	}
}

// status is the structured form of adc.Details.
type status struct {
	State         string `json:"state" yaml:"state"`
	Type          string `json:"type,omitempty" yaml:"type,omitempty"`
	Account       string `json:"account,omitempty" yaml:"account,omitempty"`
	AccountSource string `json:"account_source,omitempty" yaml:"account_source,omitempty"`
	Project       string `json:"project,omitempty" yaml:"project,omitempty"`
	Path          string `json:"path,omitempty" yaml:"path,omitempty"`
	PathSource    string `json:"path_source,omitempty" yaml:"path_source,omitempty"`
	Message       string `json:"message,omitempty" yaml:"message,omitempty"`
}

func statusOf(d *adc.Details) status {
	return status{
		State:         d.State.String(),
		Type:          d.Type,
		Account:       d.Account,
		AccountSource: d.AccountSource,
		Project:       d.Project,
		Path:          d.Path,
		PathSource:    d.PathSource,
		Message:       d.ErrorMessage,
	}
}

// DetailsData renders configured credentials as a two-column table.
func DetailsData(d *adc.Details) output.Data {
	rows := [][]string{
		{"Type", d.Type},
		{"Account", d.Account},
	}
	if d.AccountSource != "" {
		rows = append(rows, []string{"Account source", d.AccountSource})
	}
	if d.Project != "" {
		rows = append(rows, []string{"Project", d.Project})
	}
	rows = append(rows,
		[]string{"Universe domain", d.UniverseDomain},
		[]string{"File", d.Path},
	)
	if d.PathSource != "" {
		rows = append(rows, []string{"Found via", d.PathSource})
	}
	if !d.LastAuth.IsZero() {
		rows = append(rows, []string{"Last authenticated", d.LastAuth.Format(constants.TimeFormatHuman)})
	}
	return output.Data{Headers: []string{"Credential", "Value"}, Rows: rows}
}
