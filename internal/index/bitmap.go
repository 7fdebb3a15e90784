package index

import (
	"slices"

	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/tuannm99/coldb/internal/record"
)

type bitmapEntry struct {
	key any
	ids *roaring64.Bitmap
}

// bitmapIndex holds one roaring bitmap per distinct key. Range queries walk
// the distinct keys in order.
type bitmapIndex struct {
	col     record.ColumnID
	typ     record.ColumnType
	entries map[any]*bitmapEntry
	size    int
}

var _ Index = (*bitmapIndex)(nil)

func newBitmapIndex(col record.ColumnID, typ record.ColumnType) *bitmapIndex {
	return &bitmapIndex{col: col, typ: typ, entries: make(map[any]*bitmapEntry)}
}

func (b *bitmapIndex) Kind() Kind                    { return KindBitmap }
func (b *bitmapIndex) ColumnID() record.ColumnID     { return b.col }
func (b *bitmapIndex) ColumnType() record.ColumnType { return b.typ }
func (b *bitmapIndex) Len() int                      { return b.size }

func (b *bitmapIndex) Insert(key any, id record.RowID) error {
	k, err := checkKey(b.typ, key)
	if err != nil {
		return err
	}
	hk := record.HashKey(k)
	e, ok := b.entries[hk]
	if !ok {
		e = &bitmapEntry{key: k, ids: roaring64.New()}
		b.entries[hk] = e
	}
	if e.ids.CheckedAdd(uint64(id)) {
		b.size++
	}
	return nil
}

func (b *bitmapIndex) Delete(key any, id record.RowID) error {
	k, err := checkKey(b.typ, key)
	if err != nil {
		return err
	}
	hk := record.HashKey(k)
	e, ok := b.entries[hk]
	if !ok {
		return nil
	}
	if e.ids.CheckedRemove(uint64(id)) {
		b.size--
	}
	if e.ids.IsEmpty() {
		delete(b.entries, hk)
	}
	return nil
}

func (b *bitmapIndex) PointQuery(key any) (*record.IDCursor, error) {
	k, err := checkKey(b.typ, key)
	if err != nil {
		return nil, err
	}
	e, ok := b.entries[record.HashKey(k)]
	if !ok {
		return record.NewIDCursor(nil), nil
	}
	return record.NewIDCursor(bitmapIDs(e.ids)), nil
}

func (b *bitmapIndex) RangeQuery(low, high any, includeLow, includeHigh bool) (*record.IDCursor, error) {
	r, err := newKeyRange(b.typ, low, high, includeLow, includeHigh)
	if err != nil {
		return nil, err
	}
	var out []record.RowID
	if r.empty {
		return record.NewIDCursor(out), nil
	}
	matched := make([]*bitmapEntry, 0, len(b.entries))
	for _, e := range b.entries {
		if r.contains(e.key) {
			matched = append(matched, e)
		}
	}
	slices.SortFunc(matched, func(x, y *bitmapEntry) int {
		c, _ := record.Compare(x.key, y.key)
		return c
	})
	for _, e := range matched {
		out = appendBitmap(out, e.ids)
	}
	return record.NewIDCursor(out), nil
}
