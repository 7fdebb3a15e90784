package colstore

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/index"
	"github.com/tuannm99/coldb/internal/record"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CheckName validates a table or column identifier.
func CheckName(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("identifier %q: %w", name, dberr.ErrInvalidName)
	}
	return nil
}

// Table is a set of equally long columns plus the indexes on them.
//
// Rows are addressed by logical RowIDs that never change while the row is
// live. ids[p-1] is the id stored at 1-based position p and positions is the
// inverse; both are rewritten on every compaction.
type Table struct {
	id   record.TableID
	name string

	cols    []*Column
	nextCol record.ColumnID

	ids       []record.RowID
	positions map[record.RowID]int
	nextRow   record.RowID

	indexes    map[record.ColumnID]index.Index
	treeDegree int

	onChange func(*Table)
}

type Option func(*Table)

// WithTreeDegree sets the degree used for TREE indexes created on the table.
func WithTreeDegree(d int) Option {
	return func(t *Table) { t.treeDegree = d }
}

// NewTable builds an empty table. Column ids start at 1 in declaration order.
func NewTable(id record.TableID, name string, cols []record.Column, opts ...Option) (*Table, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	t := newEmpty(id, name, opts...)
	for _, c := range cols {
		if _, err := t.addColumn(c.Name, c.Type); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func newEmpty(id record.TableID, name string, opts ...Option) *Table {
	t := &Table{
		id:         id,
		name:       name,
		nextCol:    1,
		nextRow:    1,
		positions:  make(map[record.RowID]int),
		indexes:    make(map[record.ColumnID]index.Index),
		treeDegree: index.DefaultTreeDegree,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Table) ID() record.TableID { return t.id }
func (t *Table) Name() string       { return t.name }

// RowCount is the number of live rows.
func (t *Table) RowCount() int { return len(t.ids) }

// NextRowID is the id the next inserted row will receive.
func (t *Table) NextRowID() record.RowID { return t.nextRow }

// RowIDs returns the live ids in storage order.
func (t *Table) RowIDs() []record.RowID { return slices.Clone(t.ids) }

// Contains reports whether id is a live row.
func (t *Table) Contains(id record.RowID) bool {
	_, ok := t.positions[id]
	return ok
}

// SetChangeHook registers fn to run after every successful mutation.
func (t *Table) SetChangeHook(fn func(*Table)) { t.onChange = fn }

// SetName renames the table. Name uniqueness is the caller's concern.
func (t *Table) SetName(name string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	t.name = name
	t.changed()
	return nil
}

func (t *Table) changed() {
	if t.onChange != nil {
		t.onChange(t)
	}
}

// Columns returns the columns in declaration order.
func (t *Table) Columns() []*Column { return slices.Clone(t.cols) }

func (t *Table) Column(id record.ColumnID) (*Column, error) {
	for _, c := range t.cols {
		if c.id == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("column %d of %s: %w", id, t.name, dberr.ErrNoSuchColumn)
}

func (t *Table) ColumnByName(name string) (*Column, error) {
	for _, c := range t.cols {
		if c.name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("column %s.%s: %w", t.name, name, dberr.ErrNoSuchColumn)
}

// Schema returns the column definitions in declaration order.
func (t *Table) Schema() record.Schema {
	s := record.Schema{Cols: make([]record.Column, len(t.cols))}
	for i, c := range t.cols {
		s.Cols[i] = record.Column{Name: c.name, Type: c.typ}
	}
	return s
}

// ---- DDL ----

func (t *Table) CreateColumn(name string, typ record.ColumnType) (record.ColumnID, error) {
	id, err := t.addColumn(name, typ)
	if err != nil {
		return 0, err
	}
	slog.Debug("colstore.column.created", "table", t.name, "column", name, "type", typ.String())
	t.changed()
	return id, nil
}

func (t *Table) addColumn(name string, typ record.ColumnType) (record.ColumnID, error) {
	if err := CheckName(name); err != nil {
		return 0, err
	}
	if !typ.Valid() {
		return 0, fmt.Errorf("column %s type %v: %w", name, typ, dberr.ErrInvalidValue)
	}
	if _, err := t.ColumnByName(name); err == nil {
		return 0, fmt.Errorf("column %s.%s: %w", t.name, name, dberr.ErrColumnAlreadyExists)
	}
	c := newColumn(t.nextCol, name, typ)
	c.vec.appendNulls(len(t.ids))
	t.cols = append(t.cols, c)
	t.nextCol++
	return c.id, nil
}

// DropColumn removes the column and any index on it.
func (t *Table) DropColumn(id record.ColumnID) error {
	i := slices.IndexFunc(t.cols, func(c *Column) bool { return c.id == id })
	if i < 0 {
		return fmt.Errorf("column %d of %s: %w", id, t.name, dberr.ErrNoSuchColumn)
	}
	name := t.cols[i].name
	t.cols = slices.Delete(t.cols, i, i+1)
	delete(t.indexes, id)
	slog.Debug("colstore.column.dropped", "table", t.name, "column", name)
	t.changed()
	return nil
}

func (t *Table) RenameColumn(id record.ColumnID, newName string) error {
	c, err := t.Column(id)
	if err != nil {
		return err
	}
	if err := CheckName(newName); err != nil {
		return err
	}
	if c.name == newName {
		return nil
	}
	if _, err := t.ColumnByName(newName); err == nil {
		return fmt.Errorf("column %s.%s: %w", t.name, newName, dberr.ErrColumnAlreadyExists)
	}
	c.name = newName
	t.changed()
	return nil
}

// CreateIndex builds an index of the given kind over the existing rows.
func (t *Table) CreateIndex(col record.ColumnID, kind index.Kind) (index.Index, error) {
	c, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	if _, ok := t.indexes[col]; ok {
		return nil, fmt.Errorf("index on %s.%s: %w", t.name, c.name, dberr.ErrIndexAlreadyExists)
	}
	ix, err := t.buildIndex(c, kind)
	if err != nil {
		return nil, err
	}
	t.indexes[col] = ix
	slog.Debug("colstore.index.created", "table", t.name, "column", c.name, "kind", kind.String(), "entries", ix.Len())
	t.changed()
	return ix, nil
}

func (t *Table) buildIndex(c *Column, kind index.Kind) (index.Index, error) {
	ix, err := index.NewWithDegree(kind, c.id, c.typ, t.treeDegree)
	if err != nil {
		return nil, err
	}
	for p, id := range t.ids {
		v := c.Value(p + 1)
		if v == nil {
			continue
		}
		if err := ix.Insert(v, id); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

func (t *Table) DropIndex(col record.ColumnID) error {
	if _, ok := t.indexes[col]; !ok {
		return fmt.Errorf("index on column %d of %s: %w", col, t.name, dberr.ErrNoSuchIndex)
	}
	delete(t.indexes, col)
	t.changed()
	return nil
}

// Index returns the index on col, if any.
func (t *Table) Index(col record.ColumnID) (index.Index, bool) {
	ix, ok := t.indexes[col]
	return ix, ok
}

// Indexes returns every index ordered by column id.
func (t *Table) Indexes() []index.Index {
	out := make([]index.Index, 0, len(t.indexes))
	for _, ix := range t.indexes {
		out = append(out, ix)
	}
	slices.SortFunc(out, func(a, b index.Index) int { return int(a.ColumnID()) - int(b.ColumnID()) })
	return out
}

// ---- DML ----

// resolveColumns maps ids to columns; an empty list means every column.
func (t *Table) resolveColumns(ids []record.ColumnID) ([]*Column, error) {
	if len(ids) == 0 {
		return t.Columns(), nil
	}
	out := make([]*Column, len(ids))
	seen := make(map[record.ColumnID]bool, len(ids))
	for i, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("column %d listed twice: %w", id, dberr.ErrInvalidValue)
		}
		seen[id] = true
		c, err := t.Column(id)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// normalizeRows checks arity and converts every cell to its column's
// canonical representation without touching the table.
func normalizeRows(cols []*Column, rows [][]any) ([][]any, error) {
	out := make([][]any, len(rows))
	for r, row := range rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("row %d has %d values for %d columns: %w",
				r, len(row), len(cols), dberr.ErrInvalidValue)
		}
		norm := make([]any, len(row))
		for i, v := range row {
			x, err := record.Normalize(cols[i].typ, v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", r, cols[i].name, err)
			}
			norm[i] = x
		}
		out[r] = norm
	}
	return out, nil
}

// AddRows appends rows and returns their ids in input order. Columns not
// listed receive NULL. Every row is validated before any column changes.
func (t *Table) AddRows(columns []record.ColumnID, rows [][]any) ([]record.RowID, error) {
	cols, err := t.resolveColumns(columns)
	if err != nil {
		return nil, err
	}
	norm, err := normalizeRows(cols, rows)
	if err != nil {
		return nil, err
	}
	if len(norm) == 0 {
		return nil, nil
	}

	listed := make(map[record.ColumnID]int, len(cols))
	for i, c := range cols {
		listed[c.id] = i
	}
	ids := make([]record.RowID, len(norm))
	for r, row := range norm {
		id := t.nextRow
		t.nextRow++
		ids[r] = id
		t.ids = append(t.ids, id)
		t.positions[id] = len(t.ids)
		for _, c := range t.cols {
			i, ok := listed[c.id]
			if !ok {
				c.vec.Append(nil)
				continue
			}
			c.vec.Append(row[i])
			if err := t.indexInsert(c.id, row[i], id); err != nil {
				return nil, err
			}
		}
	}
	t.changed()
	return ids, nil
}

// Value returns one cell; nil means NULL.
func (t *Table) Value(id record.RowID, col record.ColumnID) (any, error) {
	p, ok := t.positions[id]
	if !ok {
		return nil, fmt.Errorf("row %d of %s: %w", id, t.name, dberr.ErrNoSuchRow)
	}
	c, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	return c.Value(p), nil
}

// ScanColumn calls fn for every live row in storage order until fn returns false.
func (t *Table) ScanColumn(col record.ColumnID, fn func(id record.RowID, v any) bool) error {
	c, err := t.Column(col)
	if err != nil {
		return err
	}
	for p, id := range t.ids {
		if !fn(id, c.Value(p+1)) {
			return nil
		}
	}
	return nil
}

// GetRows returns a cursor over every live row in storage order or, when ids
// are given, over those ids that are live in ascending order.
func (t *Table) GetRows(ids ...record.RowID) *RowCursor {
	if len(ids) == 0 {
		return newRowCursor(t, t.RowIDs())
	}
	sel := slices.Clone(ids)
	slices.Sort(sel)
	sel = slices.Compact(sel)
	return newRowCursor(t, sel)
}

// checkLive validates ids and returns them deduplicated in input order.
func (t *Table) checkLive(ids []record.RowID) ([]record.RowID, error) {
	out := make([]record.RowID, 0, len(ids))
	seen := make(map[record.RowID]bool, len(ids))
	for _, id := range ids {
		if !t.Contains(id) {
			return nil, fmt.Errorf("row %d of %s: %w", id, t.name, dberr.ErrNoSuchRow)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// UpdateRows writes values into columns for each id. values holds either a
// single row applied to every id or one row per id. Indexes on the written
// columns move each row from its old key to its new key.
func (t *Table) UpdateRows(ids []record.RowID, columns []record.ColumnID, values [][]any) (int, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("update of %s without columns: %w", t.name, dberr.ErrInvalidValue)
	}
	cols, err := t.resolveColumns(columns)
	if err != nil {
		return 0, err
	}
	if len(values) != 1 && len(values) != len(ids) {
		return 0, fmt.Errorf("%d value rows for %d ids: %w", len(values), len(ids), dberr.ErrInvalidValue)
	}
	norm, err := normalizeRows(cols, values)
	if err != nil {
		return 0, err
	}
	if len(norm) > 1 {
		// per-row values do not survive deduplication; reject repeats
		seen := make(map[record.RowID]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				return 0, fmt.Errorf("row %d listed twice: %w", id, dberr.ErrInvalidValue)
			}
			seen[id] = true
		}
	}
	live, err := t.checkLive(ids)
	if err != nil {
		return 0, err
	}

	for r, id := range live {
		row := norm[0]
		if len(norm) > 1 {
			row = norm[r]
		}
		p := t.positions[id]
		for i, c := range cols {
			old := c.Value(p)
			if err := t.indexDelete(c.id, old, id); err != nil {
				return 0, err
			}
			c.vec.Set(p, row[i])
			if err := t.indexInsert(c.id, row[i], id); err != nil {
				return 0, err
			}
		}
	}
	if len(live) > 0 {
		t.changed()
	}
	return len(live), nil
}

// DeleteRows removes rows and compacts every column. Ids of the remaining
// rows are unchanged.
func (t *Table) DeleteRows(ids []record.RowID) (int, error) {
	live, err := t.checkLive(ids)
	if err != nil {
		return 0, err
	}
	if len(live) == 0 {
		return 0, nil
	}

	keep := make([]bool, len(t.ids))
	for i := range keep {
		keep[i] = true
	}
	for _, id := range live {
		p := t.positions[id]
		for _, c := range t.cols {
			if err := t.indexDelete(c.id, c.Value(p), id); err != nil {
				return 0, err
			}
		}
		keep[p-1] = false
	}

	for _, c := range t.cols {
		c.vec.compact(keep)
	}
	w := 0
	for i, id := range t.ids {
		if !keep[i] {
			delete(t.positions, id)
			continue
		}
		t.ids[w] = id
		t.positions[id] = w + 1
		w++
	}
	t.ids = t.ids[:w]

	t.changed()
	return len(live), nil
}

func (t *Table) indexInsert(col record.ColumnID, v any, id record.RowID) error {
	ix, ok := t.indexes[col]
	if !ok || v == nil {
		return nil
	}
	return ix.Insert(v, id)
}

func (t *Table) indexDelete(col record.ColumnID, v any, id record.RowID) error {
	ix, ok := t.indexes[col]
	if !ok || v == nil {
		return nil
	}
	return ix.Delete(v, id)
}
