package colstore

import "github.com/tuannm99/coldb/internal/record"

// Row is one materialized row; Values follow the table's column order.
type Row struct {
	ID     record.RowID
	Values []any
}

// RowCursor reads rows lazily: values are fetched on Next, and rows deleted
// after the cursor was opened are skipped. It is single-pass and must be closed.
type RowCursor struct {
	t      *Table
	ids    []record.RowID
	pos    int
	closed bool
}

func newRowCursor(t *Table, ids []record.RowID) *RowCursor {
	return &RowCursor{t: t, ids: ids}
}

func (c *RowCursor) Next() (Row, bool) {
	if c == nil || c.closed {
		return Row{}, false
	}
	for c.pos < len(c.ids) {
		id := c.ids[c.pos]
		c.pos++
		p, ok := c.t.positions[id]
		if !ok {
			continue
		}
		vals := make([]any, len(c.t.cols))
		for i, col := range c.t.cols {
			vals[i] = col.Value(p)
		}
		return Row{ID: id, Values: vals}, true
	}
	return Row{}, false
}

func (c *RowCursor) Close() error {
	if c == nil {
		return nil
	}
	c.closed = true
	c.ids = nil
	c.t = nil
	return nil
}

// Collect drains the cursor and closes it.
func (c *RowCursor) Collect() []Row {
	defer func() { _ = c.Close() }()
	var out []Row
	for {
		r, ok := c.Next()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}
