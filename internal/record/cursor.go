package record

// IDCursor is a single-pass sequence of row ids. It is owned by one consumer
// and must be closed; a closed cursor yields nothing.
type IDCursor struct {
	ids    []RowID
	pos    int
	closed bool
}

func NewIDCursor(ids []RowID) *IDCursor {
	return &IDCursor{ids: ids}
}

// Next returns the next id and false once the sequence is exhausted.
func (c *IDCursor) Next() (RowID, bool) {
	if c == nil || c.closed || c.pos >= len(c.ids) {
		return 0, false
	}
	id := c.ids[c.pos]
	c.pos++
	return id, true
}

// Remaining reports how many ids are left.
func (c *IDCursor) Remaining() int {
	if c == nil || c.closed {
		return 0
	}
	return len(c.ids) - c.pos
}

func (c *IDCursor) Close() error {
	if c == nil {
		return nil
	}
	c.closed = true
	c.ids = nil
	return nil
}

// Drain reads every remaining id and closes the cursor.
func Drain(c *IDCursor) []RowID {
	defer func() { _ = c.Close() }()
	out := make([]RowID, 0, c.Remaining())
	for {
		id, ok := c.Next()
		if !ok {
			return out
		}
		out = append(out, id)
	}
}
