package sheetreview

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/agentstation/sheetreview/pkg/gateway"
	"github.com/agentstation/sheetreview/pkg/session"
	"github.com/agentstation/sheetreview/pkg/table"
	"github.com/agentstation/sheetreview/pkg/view"
)

// Compile-time interface check to ensure proper implementation.
var _ Viewer = (*client)(nil)

// Viewer provides read access to the viewer's derived state.
type Viewer interface {
	// View returns a consistent copy of everything the reviewer sees
	View() View

	// Table returns the current snapshot
	Table() table.Table

	// Version changes whenever the snapshot is replaced or patched
	Version() uint64

	// Identity returns the signed-in reviewer, when the gateway knows it
	Identity(ctx context.Context) (string, error)
}

// View is a read-only copy of a viewer's state.
type View struct {
	Headers          []string         `json:"headers" yaml:"headers"`
	Row              *table.Row       `json:"row,omitempty" yaml:"row,omitempty"`
	Annotation       string           `json:"annotation" yaml:"annotation"`
	AnnotationColumn int              `json:"annotation_column" yaml:"annotation_column"`
	Loaded           bool             `json:"loaded" yaml:"loaded"`
	Loading          bool             `json:"loading" yaml:"loading"`
	Pagination       view.Pagination  `json:"pagination" yaml:"pagination"`
	Position         int              `json:"position" yaml:"position"`
	Filter           *view.Criterion  `json:"filter,omitempty" yaml:"filter,omitempty"`
	Session          session.Snapshot `json:"session" yaml:"session"`
	Sections         []view.Section   `json:"sections,omitempty" yaml:"sections,omitempty"`
	LastError        string           `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	FetchedAt        utc.Time         `json:"fetched_at" yaml:"fetched_at"`
	Identity         string           `json:"identity,omitempty" yaml:"identity,omitempty"`
}

// Editing reports whether an edit is open.
func (v View) Editing() bool {
	return v.Session.Active
}

// View returns a consistent copy of the viewer's state.
func (c *client) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t := c.store.Table()
	rows := view.Filter(t, c.filter)
	col := c.annotationColumn(t.Width())

	v := View{
		Headers:          append([]string(nil), t.Headers...),
		AnnotationColumn: col,
		Loaded:           c.store.Loaded(),
		Pagination:       view.Paginate(c.page, len(rows)),
		Session:          c.sess.Snapshot(),
		FetchedAt:        t.FetchedAt,
		Identity:         c.identity,
	}
	if c.filter != nil {
		f := *c.filter
		v.Filter = &f
	}
	if c.lastErr != nil {
		v.LastError = c.lastErr.Error()
	}

	row, ok := c.store.Observed()
	if c.pinned == 0 || !ok {
		v.Loading = true
		return v
	}
	v.Row = &row
	v.Annotation = row.Field(col)
	v.Position = view.Position(rows, row.Index)
	if len(c.options.sectionColumns) > 0 {
		v.Sections = view.Sections(row, c.options.sectionColumns, c.options.sectionVocabulary)
	}
	return v
}

// Table returns the current snapshot.
func (c *client) Table() table.Table {
	return c.store.Table().Clone()
}

// Version returns the snapshot version.
func (c *client) Version() uint64 {
	return c.store.Version()
}

// Identity asks the gateway who is signed in and remembers the answer for
// View.
func (c *client) Identity(ctx context.Context) (string, error) {
	id, ok := c.gw.(gateway.Identifier)
	if !ok {
		return "", nil
	}
	who, err := id.Identity(ctx)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.identity = who
	c.mu.Unlock()
	return who, nil
}
