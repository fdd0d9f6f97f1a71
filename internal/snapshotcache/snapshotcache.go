// Package snapshotcache keeps table snapshots on disk between runs.
//
// Snapshots are stored as YAML documents under a base directory, one file
// per worksheet, and are used to show the last known table while the first
// poll is still in flight.
package snapshotcache

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/peterbourgon/diskv/v3"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/table"
)

// formatVersion is bumped when the document layout changes. Documents with
// another version are treated as absent.
const formatVersion = 1

var _ sheetreview.SnapshotCache = (*Cache)(nil)

// Cache is a disk-backed sheetreview.SnapshotCache.
type Cache struct {
	d        *diskv.Diskv
	basePath string
}

type document struct {
	Version int         `yaml:"version"`
	Key     string      `yaml:"key"`
	Table   table.Table `yaml:"table"`
}

// New opens a cache rooted at basePath. The directory is created on the
// first write.
func New(basePath string) (*Cache, error) {
	if basePath == "" {
		return nil, errors.NewValidationError("cache_dir", basePath, "snapshot cache directory is empty")
	}
	basePath = filepath.Clean(basePath)
	return &Cache{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPath,
			InverseTransform:  pathToKey,
			CacheSizeMax:      constants.SnapshotCacheSize,
		}),
		basePath: basePath,
	}, nil
}

// BasePath returns the cache directory.
func (c *Cache) BasePath() string {
	return c.basePath
}

// Load implements sheetreview.SnapshotCache.
func (c *Cache) Load(key string) (table.Table, bool, error) {
	if !c.d.Has(key) {
		return table.Table{}, false, nil
	}
	b, err := c.d.Read(key)
	if err != nil {
		return table.Table{}, false, errors.WrapIO("read", c.d.BasePath, err)
	}

	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return table.Table{}, false, errors.WrapParse("yaml", key, err)
	}
	if doc.Version != formatVersion || doc.Key != key {
		return table.Table{}, false, nil
	}
	return doc.Table, true, nil
}

// Store implements sheetreview.SnapshotCache.
func (c *Cache) Store(key string, t table.Table) error {
	b, err := yaml.Marshal(document{Version: formatVersion, Key: key, Table: t})
	if err != nil {
		return errors.WrapParse("yaml", key, err)
	}
	if err := c.d.Write(key, b); err != nil {
		return errors.WrapIO("write", c.basePath, err)
	}
	return nil
}

// Keys lists the cached snapshot keys.
func (c *Cache) Keys(ctx context.Context) []string {
	var keys []string
	for k := range c.d.Keys(ctx.Done()) {
		keys = append(keys, k)
	}
	return keys
}

// Clear removes every cached snapshot.
func (c *Cache) Clear() error {
	if err := c.d.EraseAll(); err != nil {
		return errors.WrapIO("erase", c.basePath, err)
	}
	return nil
}

// keyToPath maps "tableID/sheet" to <table>/<sheet>.yaml with both parts
// encoded so sheet names with spaces or slashes stay one path element.
func keyToPath(key string) *diskv.PathKey {
	tableID, sheet, _ := strings.Cut(key, "/")
	return &diskv.PathKey{
		Path:     []string{encode(tableID)},
		FileName: encode(sheet) + ".yaml",
	}
}

func pathToKey(pk *diskv.PathKey) string {
	var tableID string
	if len(pk.Path) > 0 {
		tableID = decode(pk.Path[0])
	}
	return tableID + "/" + decode(strings.TrimSuffix(pk.FileName, ".yaml"))
}

func encode(s string) string {
	if s == "" {
		return "_"
	}
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func decode(s string) string {
	if s == "_" {
		return ""
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	return string(b)
}
