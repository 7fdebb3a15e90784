package colstore

import (
	"fmt"

	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/index"
	"github.com/tuannm99/coldb/internal/record"
)

// Image is a detached snapshot of a table: everything needed to rebuild it.
type Image struct {
	ID           record.TableID
	Name         string
	NextColumnID record.ColumnID
	NextRowID    record.RowID
	RowIDs       []record.RowID
	Columns      []ColumnImage
	Indexes      []IndexImage
}

type ColumnImage struct {
	ID     record.ColumnID
	Name   string
	Type   record.ColumnType
	Values []any // one per row, nil for NULL
}

type IndexImage struct {
	Column record.ColumnID
	Kind   index.Kind
}

// Image snapshots the table. Values are shared with the table for immutable
// types, so the image must be consumed before the next mutation.
func (t *Table) Image() *Image {
	img := &Image{
		ID:           t.id,
		Name:         t.name,
		NextColumnID: t.nextCol,
		NextRowID:    t.nextRow,
		RowIDs:       t.RowIDs(),
		Columns:      make([]ColumnImage, len(t.cols)),
	}
	for i, c := range t.cols {
		vals := make([]any, len(t.ids))
		for p := range vals {
			vals[p] = c.Value(p + 1)
		}
		img.Columns[i] = ColumnImage{ID: c.id, Name: c.name, Type: c.typ, Values: vals}
	}
	for _, ix := range t.Indexes() {
		img.Indexes = append(img.Indexes, IndexImage{Column: ix.ColumnID(), Kind: ix.Kind()})
	}
	return img
}

// FromImage rebuilds a table, including its indexes, from an image.
func FromImage(img *Image, opts ...Option) (*Table, error) {
	if err := CheckName(img.Name); err != nil {
		return nil, err
	}
	t := newEmpty(img.ID, img.Name, opts...)

	n := len(img.RowIDs)
	var prev record.RowID
	for p, id := range img.RowIDs {
		if id == 0 || id <= prev || id >= img.NextRowID {
			return nil, fmt.Errorf("table %s row id %d at %d: %w", img.Name, id, p+1, dberr.ErrCorruptImage)
		}
		prev = id
		t.ids = append(t.ids, id)
		t.positions[id] = p + 1
	}
	t.nextRow = img.NextRowID

	for _, ci := range img.Columns {
		if ci.ID == 0 || ci.ID >= img.NextColumnID {
			return nil, fmt.Errorf("table %s column id %d: %w", img.Name, ci.ID, dberr.ErrCorruptImage)
		}
		if len(ci.Values) != n {
			return nil, fmt.Errorf("table %s column %s has %d values for %d rows: %w",
				img.Name, ci.Name, len(ci.Values), n, dberr.ErrCorruptImage)
		}
		if _, err := t.ColumnByName(ci.Name); err == nil {
			return nil, fmt.Errorf("table %s duplicate column %s: %w", img.Name, ci.Name, dberr.ErrCorruptImage)
		}
		if err := CheckName(ci.Name); err != nil {
			return nil, err
		}
		if !ci.Type.Valid() {
			return nil, fmt.Errorf("table %s column %s type %v: %w", img.Name, ci.Name, ci.Type, dberr.ErrCorruptImage)
		}
		c := newColumn(ci.ID, ci.Name, ci.Type)
		for _, v := range ci.Values {
			x, err := record.Normalize(ci.Type, v)
			if err != nil {
				return nil, fmt.Errorf("table %s column %s: %w", img.Name, ci.Name, err)
			}
			c.vec.Append(x)
		}
		t.cols = append(t.cols, c)
	}
	t.nextCol = img.NextColumnID

	for _, ii := range img.Indexes {
		c, err := t.Column(ii.Column)
		if err != nil {
			return nil, fmt.Errorf("table %s index on column %d: %w", img.Name, ii.Column, dberr.ErrCorruptImage)
		}
		if _, dup := t.indexes[c.id]; dup {
			return nil, fmt.Errorf("table %s duplicate index on %s: %w", img.Name, c.name, dberr.ErrCorruptImage)
		}
		ix, err := t.buildIndex(c, ii.Kind)
		if err != nil {
			return nil, err
		}
		t.indexes[c.id] = ix
	}
	return t, nil
}
