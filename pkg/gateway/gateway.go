// Package gateway defines the narrow contract to the remote table store.
// The engine only ever reads a range and writes a range; everything else
// about the backing store (Google Sheets, an .xlsx workbook, memory) lives
// behind this interface.
package gateway

import (
	"context"

	"github.com/agentstation/sheetreview/pkg/errors"
)

// Gateway reads and writes rectangular ranges of a remote table.
//
// GetRange returns rows of cells for an A1 range spec. Rows and cells may be
// ragged: trailing empty cells and trailing empty rows may be omitted.
// UpdateRange overwrites the cells of rangeSpec with values (raw input).
//
// Both fail with an error matching errors.ErrUnauthenticated when no
// identity is signed in.
type Gateway interface {
	GetRange(ctx context.Context, tableID, rangeSpec string) ([][]string, error)
	UpdateRange(ctx context.Context, tableID, rangeSpec string, values [][]string) error
}

// Identifier is implemented by gateways that know who is signed in.
type Identifier interface {
	Identity(ctx context.Context) (string, error)
}

// SignedIn reports whether a reviewer is currently signed in.
type SignedIn func() bool

type authenticated struct {
	next     Gateway
	signedIn SignedIn
	backend  string
}

// Authenticated gates every call of next behind signedIn. Calls made while
// signedIn returns false fail with an AuthenticationError and never reach
// next.
func Authenticated(next Gateway, backend string, signedIn SignedIn) Gateway {
	return &authenticated{next: next, signedIn: signedIn, backend: backend}
}

func (a *authenticated) check() error {
	if a.signedIn == nil || !a.signedIn() {
		return errors.NewAuthenticationError(a.backend, "session", "not signed in", nil)
	}
	return nil
}

// GetRange implements Gateway.
func (a *authenticated) GetRange(ctx context.Context, tableID, rangeSpec string) ([][]string, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return a.next.GetRange(ctx, tableID, rangeSpec)
}

// UpdateRange implements Gateway.
func (a *authenticated) UpdateRange(ctx context.Context, tableID, rangeSpec string, values [][]string) error {
	if err := a.check(); err != nil {
		return err
	}
	return a.next.UpdateRange(ctx, tableID, rangeSpec, values)
}

// Identity forwards to next when it implements Identifier.
func (a *authenticated) Identity(ctx context.Context) (string, error) {
	if err := a.check(); err != nil {
		return "", err
	}
	if id, ok := a.next.(Identifier); ok {
		return id.Identity(ctx)
	}
	return "", nil
}
