// Package viewers keeps the review sessions the API has opened. Each
// viewer owns one sheetreview.Client; viewers nobody touches for the idle
// TTL are closed.
package viewers

import (
	"context"
	"sync"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/internal/server/cache"
	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/view"
)

// Factory creates the engine client of a new viewer.
type Factory func(ctx context.Context, opts ...sheetreview.Option) (sheetreview.Client, error)

// Viewer is one open review session.
type Viewer struct {
	ID      string             `json:"id"`
	Created utc.Time           `json:"created"`
	Client  sheetreview.Client `json:"-"`
}

// Registry holds open viewers.
type Registry struct {
	factory Factory
	entries *cache.Cache
	max     int
	logger  *zerolog.Logger

	mu       sync.Mutex
	reserved int // slots held by Opens still building their client

	onOpen  []func(*Viewer)
	onClose []func(*Viewer)
}

// Option configures a Registry.
type Option func(*Registry)

// WithIdleTTL sets how long an untouched viewer stays open.
func WithIdleTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.entries = cache.New(ttl, cleanupInterval(ttl))
	}
}

// WithMaxViewers caps the number of open viewers.
func WithMaxViewers(n int) Option {
	return func(r *Registry) { r.max = n }
}

// OnOpen registers a function called for every new viewer before it is
// returned to the caller.
func OnOpen(fn func(*Viewer)) Option {
	return func(r *Registry) { r.onOpen = append(r.onOpen, fn) }
}

// OnClose registers a function called after a viewer's client is closed.
func OnClose(fn func(*Viewer)) Option {
	return func(r *Registry) { r.onClose = append(r.onClose, fn) }
}

func cleanupInterval(ttl time.Duration) time.Duration {
	return min(ttl/2, constants.CacheCleanupInterval)
}

// New creates a registry that builds clients with factory.
func New(factory Factory, logger *zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		factory: factory,
		max:     constants.MaxViewers,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.entries == nil {
		r.entries = cache.New(constants.ViewerIdleTTL, cleanupInterval(constants.ViewerIdleTTL))
	}
	r.entries.OnEvicted(func(_ string, value any) {
		if v, ok := value.(*Viewer); ok {
			r.close(v)
		}
	})
	return r
}

// Open creates a viewer at page with an optional filter. Extra options
// are passed to the factory after the cursor options.
func (r *Registry) Open(ctx context.Context, page int, filter *view.Criterion, opts ...sheetreview.Option) (*Viewer, error) {
	if err := r.reserve(); err != nil {
		return nil, err
	}
	stored := false
	defer func() {
		if !stored {
			r.release()
		}
	}()
	if page == 0 {
		page = 1
	}

	all := append([]sheetreview.Option{
		sheetreview.WithPage(page),
		sheetreview.WithFilter(filter),
	}, opts...)

	id := uuid.NewString()
	client, err := r.factory(ctx, all...)
	if err != nil {
		return nil, err
	}

	v := &Viewer{ID: id, Created: utc.Now(), Client: client}
	for _, fn := range r.onOpen {
		fn(v)
	}
	r.mu.Lock()
	r.entries.Set(id, v)
	r.reserved--
	r.mu.Unlock()
	stored = true

	r.logger.Info().Str("viewer", id).Int("page", page).Msg("Viewer opened")
	return v, nil
}

// reserve claims a viewer slot until Open either stores the viewer or
// fails.
func (r *Registry) reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && r.entries.ItemCount()+r.reserved >= r.max {
		return errors.NewResourceError("open", "viewer", "",
			errors.NewValidationError("viewers", r.max, "too many open viewers"))
	}
	r.reserved++
	return nil
}

// release gives back a slot Open reserved but did not fill.
func (r *Registry) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reserved--
}

// Get returns an open viewer and restarts its idle timer.
func (r *Registry) Get(id string) (*Viewer, error) {
	value, ok := r.entries.Get(id)
	if !ok {
		return nil, errors.NewNotFoundError("viewer", id)
	}
	r.entries.Touch(id)
	return value.(*Viewer), nil
}

// Close closes and forgets a viewer.
func (r *Registry) Close(id string) error {
	if _, ok := r.entries.Get(id); !ok {
		return errors.NewNotFoundError("viewer", id)
	}
	r.entries.Delete(id)
	return nil
}

// CloseAll closes every open viewer.
func (r *Registry) CloseAll() {
	for _, id := range r.entries.Keys() {
		r.entries.Delete(id)
	}
}

// Len returns the number of open viewers.
func (r *Registry) Len() int {
	return len(r.entries.Keys())
}

func (r *Registry) close(v *Viewer) {
	if err := v.Client.Close(); err != nil {
		r.logger.Warn().Err(err).Str("viewer", v.ID).Msg("Failed to close viewer client")
	}
	for _, fn := range r.onClose {
		fn(v)
	}
	r.logger.Info().Str("viewer", v.ID).Msg("Viewer closed")
}
