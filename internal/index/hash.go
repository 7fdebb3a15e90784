package index

import (
	"fmt"
	"slices"

	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/record"
)

// hashIndex keeps a sorted posting list per key.
type hashIndex struct {
	col     record.ColumnID
	typ     record.ColumnType
	buckets map[any][]record.RowID
	size    int
}

var _ Index = (*hashIndex)(nil)

func newHashIndex(col record.ColumnID, typ record.ColumnType) *hashIndex {
	return &hashIndex{col: col, typ: typ, buckets: make(map[any][]record.RowID)}
}

func (h *hashIndex) Kind() Kind                    { return KindHash }
func (h *hashIndex) ColumnID() record.ColumnID     { return h.col }
func (h *hashIndex) ColumnType() record.ColumnType { return h.typ }
func (h *hashIndex) Len() int                      { return h.size }

func (h *hashIndex) Insert(key any, id record.RowID) error {
	k, err := checkKey(h.typ, key)
	if err != nil {
		return err
	}
	hk := record.HashKey(k)
	ids := h.buckets[hk]
	pos, found := slices.BinarySearch(ids, id)
	if found {
		return nil
	}
	h.buckets[hk] = slices.Insert(ids, pos, id)
	h.size++
	return nil
}

func (h *hashIndex) Delete(key any, id record.RowID) error {
	k, err := checkKey(h.typ, key)
	if err != nil {
		return err
	}
	hk := record.HashKey(k)
	ids := h.buckets[hk]
	pos, found := slices.BinarySearch(ids, id)
	if !found {
		return nil
	}
	ids = slices.Delete(ids, pos, pos+1)
	if len(ids) == 0 {
		delete(h.buckets, hk)
	} else {
		h.buckets[hk] = ids
	}
	h.size--
	return nil
}

func (h *hashIndex) PointQuery(key any) (*record.IDCursor, error) {
	k, err := checkKey(h.typ, key)
	if err != nil {
		return nil, err
	}
	return record.NewIDCursor(slices.Clone(h.buckets[record.HashKey(k)])), nil
}

func (h *hashIndex) RangeQuery(low, high any, _, _ bool) (*record.IDCursor, error) {
	return nil, fmt.Errorf("HASH index on column %d: %w", h.col, dberr.ErrRangeQueryNotSupported)
}
