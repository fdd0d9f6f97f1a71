package table

// Changeset lists the row-level differences between two snapshots, keyed by
// stable row index.
type Changeset struct {
	Added   []Row
	Updated []RowUpdate
	Removed []Row
}

// RowUpdate pairs the old and new version of a row that changed.
type RowUpdate struct {
	Old Row
	New Row
}

// IsEmpty reports whether the changeset contains no changes.
func (c Changeset) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// Diff compares old and new by row index. A row counts as updated only when
// its normalized fields differ. A header change alone produces no row changes.
func Diff(old, new Table) Changeset {
	var cs Changeset

	prev := make(map[int]Row, len(old.Rows))
	for _, r := range old.Rows {
		prev[r.Index] = r
	}

	for _, r := range new.Rows {
		o, ok := prev[r.Index]
		if !ok {
			cs.Added = append(cs.Added, r)
			continue
		}
		delete(prev, r.Index)
		if !o.Equal(r) {
			cs.Updated = append(cs.Updated, RowUpdate{Old: o, New: r})
		}
	}

	for _, r := range old.Rows {
		if _, gone := prev[r.Index]; gone {
			cs.Removed = append(cs.Removed, r)
		}
	}
	return cs
}
