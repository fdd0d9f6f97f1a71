// Package sheets implements gateway.Gateway on the Google Sheets v4 API.
//
// Credentials come from Application Default Credentials or an explicit
// credentials file. Reads use formatted values so the reviewer sees what the
// spreadsheet shows; writes use RAW input so an annotation is stored exactly
// as typed.
package sheets

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/agentstation/sheetreview/internal/auth/adc"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/gateway"
	"github.com/agentstation/sheetreview/pkg/logging"
)

const backend = "sheets"

// detectTimeout bounds credential discovery, which takes no context.
const detectTimeout = 2 * time.Second

var (
	_ gateway.Gateway    = (*Client)(nil)
	_ gateway.Identifier = (*Client)(nil)
)

// Client reads and writes spreadsheet ranges through the Sheets API.
type Client struct {
	svc    *sheetsapi.Service
	logger zerolog.Logger

	credentialsFile string

	mu       sync.Mutex
	identity string
}

type options struct {
	credentialsFile string
	endpoint        string
	httpClient      *http.Client
	logger          *zerolog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithCredentialsFile signs in with a service-account or authorized-user
// JSON file instead of Application Default Credentials.
func WithCredentialsFile(path string) Option {
	return func(o *options) { o.credentialsFile = path }
}

// WithEndpoint talks to endpoint without authentication. Used against
// emulators and test servers.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client used with WithEndpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a Client. Without WithEndpoint it detects credentials first
// and fails with an AuthenticationError when none are usable.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.Default()
	}

	var clientOpts []option.ClientOption
	if o.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(o.endpoint), option.WithoutAuthentication())
		if o.httpClient != nil {
			clientOpts = append(clientOpts, option.WithHTTPClient(o.httpClient))
		}
	} else {
		creds, err := detect(ctx, o.credentialsFile)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, option.WithAuthCredentials(creds))
	}

	svc, err := sheetsapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.NewConfigError(backend, "cannot create Sheets service", err)
	}

	return &Client{
		svc:             svc,
		logger:          logger.With().Str("backend", backend).Logger(),
		credentialsFile: o.credentialsFile,
	}, nil
}

// detect runs credential discovery with a hard timeout.
func detect(ctx context.Context, file string) (*auth.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		creds *auth.Credentials
		err   error
	}
	resultChan := make(chan result, 1)
	go func() {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes:          []string{sheetsapi.SpreadsheetsScope},
			CredentialsFile: file,
		})
		resultChan <- result{creds: creds, err: err}
	}()

	method := "adc"
	if file != "" {
		method = "credentials_file"
	}

	select {
	case res := <-resultChan:
		if res.err != nil {
			return nil, errors.NewAuthenticationError(backend, method,
				"no valid credentials found - run 'gcloud auth application-default login' or pass --credentials", res.err)
		}
		return res.creds, nil
	case <-time.After(detectTimeout):
		return nil, errors.NewAuthenticationError(backend, method,
			fmt.Sprintf("credential detection timed out (%s)", detectTimeout), nil)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetRange implements gateway.Gateway.
func (c *Client) GetRange(ctx context.Context, tableID, rangeSpec string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(tableID, rangeSpec).
		MajorDimension("ROWS").
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, c.mapError(tableID, rangeSpec, err)
	}
	return toStrings(resp.Values), nil
}

// UpdateRange implements gateway.Gateway.
func (c *Client) UpdateRange(ctx context.Context, tableID, rangeSpec string, values [][]string) error {
	body := &sheetsapi.ValueRange{
		Range:          rangeSpec,
		MajorDimension: "ROWS",
		Values:         toCells(values),
	}
	resp, err := c.svc.Spreadsheets.Values.Update(tableID, rangeSpec, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return c.mapError(tableID, rangeSpec, err)
	}
	c.logger.Debug().
		Str("range", resp.UpdatedRange).
		Int64("cells", resp.UpdatedCells).
		Msg("Range updated")
	return nil
}

// Identity returns the account the credentials belong to, read from the
// local credentials file and gcloud configuration.
func (c *Client) Identity(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == "" {
		if d := adc.BuildDetails(c.credentialsFile); d.SignedIn() {
			c.identity = d.Account
		}
	}
	return c.identity, nil
}

// mapError converts API failures into the shared error types. 401 and 403
// become AuthenticationError; 404 NotFoundError; everything else an
// APIError, which matches ErrRateLimited or ErrUnavailable where it applies.
func (c *Client) mapError(tableID, rangeSpec string, err error) error {
	var gerr *googleapi.Error
	if !stderrors.As(err, &gerr) {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.NewTimeoutError("sheets "+rangeSpec, "", err.Error())
		}
		return errors.WrapAPI(backend, 0, err)
	}

	c.logger.Debug().
		Int("status", gerr.Code).
		Str("range", rangeSpec).
		Str("message", gerr.Message).
		Msg("Sheets API error")

	switch gerr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewAuthenticationError(backend, "oauth", gerr.Message, err)
	case http.StatusNotFound:
		return errors.NewNotFoundError("spreadsheet", tableID)
	default:
		return &errors.APIError{
			Backend:    backend,
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Endpoint:   rangeSpec,
			Err:        err,
		}
	}
}

func toStrings(values [][]any) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			switch v := v.(type) {
			case nil:
			case string:
				cells[j] = v
			default:
				cells[j] = fmt.Sprint(v)
			}
		}
		out[i] = cells
	}
	return out
}

func toCells(values [][]string) [][]any {
	out := make([][]any, len(values))
	for i, row := range values {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
