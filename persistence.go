package sheetreview

import (
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/table"
)

// Compile-time interface check to ensure proper implementation.
var _ Persistence = (*client)(nil)

// SnapshotCache stores table snapshots between runs so a viewer can show
// the last known table before the first poll returns.
type SnapshotCache interface {
	Load(key string) (table.Table, bool, error)
	Store(key string, t table.Table) error
}

// Persistence handles snapshot cache operations.
type Persistence interface {
	// Persist writes the current snapshot to the configured cache
	Persist() error
}

// cacheKey identifies the snapshot of one worksheet of one remote table.
func (c *client) cacheKey() string {
	return c.options.tableID + "/" + c.options.sheetName
}

// Persist writes the current snapshot to the snapshot cache.
func (c *client) Persist() error {
	if c.options.cache == nil {
		return &errors.ConfigError{
			Component: "snapshot cache",
			Message:   "no snapshot cache configured",
		}
	}
	if !c.store.Loaded() {
		return nil
	}
	if err := c.options.cache.Store(c.cacheKey(), c.store.Table()); err != nil {
		return errors.WrapResource("save", "snapshot", c.cacheKey(), err)
	}
	return nil
}

// warmStart seeds the store from the cache. Failures are logged; the first
// poll will load the table anyway.
func (c *client) warmStart() {
	t, ok, err := c.options.cache.Load(c.cacheKey())
	if err != nil {
		c.logger.Warn().Err(err).Msg("Ignoring unreadable snapshot cache")
		return
	}
	if !ok {
		return
	}

	c.mu.Lock()
	c.store.Replace(t)
	c.resolve(t, nil)
	c.mu.Unlock()

	c.logger.Debug().Int("rows", t.Len()).Msg("Snapshot restored from cache")
}
