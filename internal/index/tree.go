package index

import (
	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/google/btree"

	"github.com/tuannm99/coldb/internal/record"
)

type treeEntry struct {
	key any
	ids *roaring64.Bitmap
}

// treeIndex is an ordered index: one btree item per distinct key, each
// holding the ids of the rows with that key.
type treeIndex struct {
	col  record.ColumnID
	typ  record.ColumnType
	tree *btree.BTreeG[*treeEntry]
	size int
}

var _ Index = (*treeIndex)(nil)

func lessEntry(a, b *treeEntry) bool {
	c, _ := record.Compare(a.key, b.key)
	return c < 0
}

func newTreeIndex(col record.ColumnID, typ record.ColumnType, degree int) *treeIndex {
	if degree < 2 {
		degree = DefaultTreeDegree
	}
	return &treeIndex{col: col, typ: typ, tree: btree.NewG(degree, lessEntry)}
}

func (t *treeIndex) Kind() Kind                    { return KindTree }
func (t *treeIndex) ColumnID() record.ColumnID     { return t.col }
func (t *treeIndex) ColumnType() record.ColumnType { return t.typ }
func (t *treeIndex) Len() int                      { return t.size }

func (t *treeIndex) Insert(key any, id record.RowID) error {
	k, err := checkKey(t.typ, key)
	if err != nil {
		return err
	}
	e, ok := t.tree.Get(&treeEntry{key: k})
	if !ok {
		e = &treeEntry{key: k, ids: roaring64.New()}
		t.tree.ReplaceOrInsert(e)
	}
	if e.ids.CheckedAdd(uint64(id)) {
		t.size++
	}
	return nil
}

func (t *treeIndex) Delete(key any, id record.RowID) error {
	k, err := checkKey(t.typ, key)
	if err != nil {
		return err
	}
	e, ok := t.tree.Get(&treeEntry{key: k})
	if !ok {
		return nil
	}
	if e.ids.CheckedRemove(uint64(id)) {
		t.size--
	}
	if e.ids.IsEmpty() {
		t.tree.Delete(e)
	}
	return nil
}

func (t *treeIndex) PointQuery(key any) (*record.IDCursor, error) {
	k, err := checkKey(t.typ, key)
	if err != nil {
		return nil, err
	}
	e, ok := t.tree.Get(&treeEntry{key: k})
	if !ok {
		return record.NewIDCursor(nil), nil
	}
	return record.NewIDCursor(bitmapIDs(e.ids)), nil
}

func (t *treeIndex) RangeQuery(low, high any, includeLow, includeHigh bool) (*record.IDCursor, error) {
	r, err := newKeyRange(t.typ, low, high, includeLow, includeHigh)
	if err != nil {
		return nil, err
	}
	var out []record.RowID
	if r.empty {
		return record.NewIDCursor(out), nil
	}

	visit := func(e *treeEntry) bool {
		if !r.belowHigh(e.key) {
			return false
		}
		if r.aboveLow(e.key) {
			out = appendBitmap(out, e.ids)
		}
		return true
	}
	if r.low == nil {
		t.tree.Ascend(visit)
	} else {
		t.tree.AscendGreaterOrEqual(&treeEntry{key: r.low}, visit)
	}
	return record.NewIDCursor(out), nil
}

func bitmapIDs(b *roaring64.Bitmap) []record.RowID {
	return appendBitmap(make([]record.RowID, 0, b.GetCardinality()), b)
}

func appendBitmap(dst []record.RowID, b *roaring64.Bitmap) []record.RowID {
	it := b.Iterator()
	for it.HasNext() {
		dst = append(dst, record.RowID(it.Next()))
	}
	return dst
}
