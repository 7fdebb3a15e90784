// Package catalog is the schema registry: it owns every table and maps names
// and ids to them.
package catalog

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tuannm99/coldb/internal/colstore"
	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/index"
	"github.com/tuannm99/coldb/internal/record"
)

// Tracker is told about every table that changes. The transaction manager
// implements it.
type Tracker interface {
	MarkDirty(t *colstore.Table)
	MarkDropped(id record.TableID)
}

type Catalog struct {
	mu      sync.RWMutex
	byID    map[record.TableID]*colstore.Table
	byName  map[string]record.TableID
	nextID  record.TableID
	tracker Tracker
	opts    []colstore.Option
}

// New returns an empty catalog. opts are applied to every table it creates
// or installs.
func New(opts ...colstore.Option) *Catalog {
	return &Catalog{
		byID:   make(map[record.TableID]*colstore.Table),
		byName: make(map[string]record.TableID),
		nextID: 1,
		opts:   opts,
	}
}

func (c *Catalog) SetTracker(tr Tracker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker = tr
}

// TableOptions returns the options used for tables of this catalog.
func (c *Catalog) TableOptions() []colstore.Option { return c.opts }

func (c *Catalog) markDirty(t *colstore.Table) {
	c.mu.RLock()
	tr := c.tracker
	c.mu.RUnlock()
	if tr != nil {
		tr.MarkDirty(t)
	}
}

func (c *Catalog) CreateTable(name string, cols []record.Column) (record.TableID, error) {
	c.mu.Lock()
	if _, ok := c.byName[name]; ok {
		c.mu.Unlock()
		return 0, fmt.Errorf("table %s: %w", name, dberr.ErrTableAlreadyExists)
	}
	t, err := colstore.NewTable(c.nextID, name, cols, c.opts...)
	if err != nil {
		c.mu.Unlock()
		return 0, err
	}
	c.nextID++
	c.attach(t)
	c.mu.Unlock()

	slog.Debug("catalog.table.created", "table", name, "id", t.ID(), "columns", len(cols))
	c.markDirty(t)
	return t.ID(), nil
}

// attach registers t; callers hold mu.
func (c *Catalog) attach(t *colstore.Table) {
	c.byID[t.ID()] = t
	c.byName[t.Name()] = t.ID()
	t.SetChangeHook(c.markDirty)
}

func (c *Catalog) Table(id record.TableID) (*colstore.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("table id %d: %w", id, dberr.ErrNoSuchTable)
	}
	return t, nil
}

func (c *Catalog) TableByName(name string) (*colstore.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", name, dberr.ErrNoSuchTable)
	}
	return c.byID[id], nil
}

// DeleteTable removes the table together with its indexes.
func (c *Catalog) DeleteTable(id record.TableID) error {
	c.mu.Lock()
	t, ok := c.byID[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("table id %d: %w", id, dberr.ErrNoSuchTable)
	}
	delete(c.byID, id)
	delete(c.byName, t.Name())
	t.SetChangeHook(nil)
	tr := c.tracker
	c.mu.Unlock()

	slog.Debug("catalog.table.dropped", "table", t.Name(), "id", id)
	if tr != nil {
		tr.MarkDropped(id)
	}
	return nil
}

func (c *Catalog) RenameTable(id record.TableID, newName string) error {
	c.mu.Lock()
	t, ok := c.byID[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("table id %d: %w", id, dberr.ErrNoSuchTable)
	}
	old := t.Name()
	if old == newName {
		c.mu.Unlock()
		return nil
	}
	if _, taken := c.byName[newName]; taken {
		c.mu.Unlock()
		return fmt.Errorf("table %s: %w", newName, dberr.ErrTableAlreadyExists)
	}
	if err := colstore.CheckName(newName); err != nil {
		c.mu.Unlock()
		return err
	}
	delete(c.byName, old)
	c.byName[newName] = id
	c.mu.Unlock()

	// SetName fires the change hook, which takes the read lock
	if err := t.SetName(newName); err != nil {
		return err
	}
	slog.Debug("catalog.table.renamed", "from", old, "to", newName, "id", id)
	return nil
}

// Tables returns every table ordered by id.
func (c *Catalog) Tables() []*colstore.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*colstore.Table, 0, len(c.byID))
	for _, t := range c.byID {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *colstore.Table) int { return int(a.ID()) - int(b.ID()) })
	return out
}

// Install puts t into the catalog without marking it dirty, replacing any
// table with the same id or the same name. Used by recovery and abort.
func (c *Catalog) Install(t *colstore.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.byID[t.ID()]; ok {
		delete(c.byName, prev.Name())
		prev.SetChangeHook(nil)
	}
	if otherID, ok := c.byName[t.Name()]; ok && otherID != t.ID() {
		c.byID[otherID].SetChangeHook(nil)
		delete(c.byID, otherID)
	}
	c.attach(t)
	if t.ID() >= c.nextID {
		c.nextID = t.ID() + 1
	}
}

// Clear drops every table without notifying the tracker.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.byID {
		t.SetChangeHook(nil)
	}
	c.byID = make(map[record.TableID]*colstore.Table)
	c.byName = make(map[string]record.TableID)
	c.nextID = 1
}

// TableInfo is a read-only description of a table.
type TableInfo struct {
	ID      record.TableID `json:"id"`
	Name    string         `json:"name"`
	Rows    int            `json:"rows"`
	Columns []ColumnInfo   `json:"columns"`
}

type ColumnInfo struct {
	ID    record.ColumnID `json:"id"`
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Index string          `json:"index,omitempty"`
}

// Describe lists every table with its columns and index kinds.
func (c *Catalog) Describe() []TableInfo {
	tables := c.Tables()
	out := make([]TableInfo, 0, len(tables))
	for _, t := range tables {
		info := TableInfo{ID: t.ID(), Name: t.Name(), Rows: t.RowCount()}
		for _, col := range t.Columns() {
			ci := ColumnInfo{ID: col.ID(), Name: col.Name(), Type: col.Type().String()}
			if ix, ok := t.Index(col.ID()); ok {
				ci.Index = ix.Kind().String()
			}
			info.Columns = append(info.Columns, ci)
		}
		out = append(out, info)
	}
	return out
}

// IndexOf is a convenience lookup by table and column name.
func (c *Catalog) IndexOf(table, column string) (index.Index, error) {
	t, err := c.TableByName(table)
	if err != nil {
		return nil, err
	}
	col, err := t.ColumnByName(column)
	if err != nil {
		return nil, err
	}
	ix, ok := t.Index(col.ID())
	if !ok {
		return nil, fmt.Errorf("index on %s.%s: %w", table, column, dberr.ErrNoSuchIndex)
	}
	return ix, nil
}
