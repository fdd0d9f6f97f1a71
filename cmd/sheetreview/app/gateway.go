package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview/internal/auth/adc"
	"github.com/agentstation/sheetreview/internal/gateway/sheets"
	"github.com/agentstation/sheetreview/internal/gateway/xlsx"
	"github.com/agentstation/sheetreview/pkg/gateway"
)

// newGateway opens the configured backend.
func newGateway(ctx context.Context, cfg *Config, logger *zerolog.Logger) (gateway.Gateway, error) {
	switch cfg.Backend {
	case BackendXLSX:
		return xlsx.Open(ExpandPath(cfg.WorkbookPath), logger)
	default:
		credentials := ExpandPath(cfg.CredentialsFile)
		client, err := sheets.New(ctx,
			sheets.WithCredentialsFile(credentials),
			sheets.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}

		// Credentials from a local file can be revoked while we run; once
		// the file is gone every call fails as signed out. Credentials
		// from the environment (metadata server) are not gated.
		if !adc.BuildDetails(credentials).SignedIn() {
			return client, nil
		}
		return gateway.Authenticated(client, BackendSheets, func() bool {
			return adc.BuildDetails(credentials).SignedIn()
		}), nil
	}
}
