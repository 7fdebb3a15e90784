// Package index implements per-column secondary indexes mapping key values to
// row ids. Three variants share one interface: HASH (point lookups only),
// TREE (ordered, point and range) and BITMAP (one roaring bitmap per distinct
// key, suited to low-cardinality columns).
package index

import (
	"fmt"
	"strings"

	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/record"
)

type Kind uint8

const (
	KindHash Kind = iota + 1
	KindTree
	KindBitmap
)

func (k Kind) String() string {
	switch k {
	case KindHash:
		return "HASH"
	case KindTree:
		return "TREE"
	case KindBitmap:
		return "BITMAP"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) Valid() bool { return k >= KindHash && k <= KindBitmap }

func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HASH":
		return KindHash, nil
	case "TREE", "BTREE":
		return KindTree, nil
	case "BITMAP":
		return KindBitmap, nil
	}
	return 0, fmt.Errorf("index kind %q: %w", s, dberr.ErrInvalidValue)
}

// Index maps non-NULL keys of one column to the row ids holding them.
// Keys must match the column type; NULL is never indexed.
type Index interface {
	Kind() Kind
	ColumnID() record.ColumnID
	ColumnType() record.ColumnType

	Insert(key any, id record.RowID) error
	// Delete removes one (key, id) pair; a missing pair is not an error.
	Delete(key any, id record.RowID) error

	// PointQuery returns the ids holding key in ascending order.
	PointQuery(key any) (*record.IDCursor, error)
	// RangeQuery returns ids whose key lies between low and high, ordered by
	// key and then by id. MinimumSearchKey and MaximumSearchKey act as open bounds.
	RangeQuery(low, high any, includeLow, includeHigh bool) (*record.IDCursor, error)

	// Len is the number of indexed (key, id) pairs.
	Len() int
}

// DefaultTreeDegree is used when New is asked for a TREE index without a
// configured degree.
const DefaultTreeDegree = 32

// New builds an empty index of the given kind.
func New(kind Kind, col record.ColumnID, typ record.ColumnType) (Index, error) {
	return NewWithDegree(kind, col, typ, DefaultTreeDegree)
}

func NewWithDegree(kind Kind, col record.ColumnID, typ record.ColumnType, degree int) (Index, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("index on column type %v: %w", typ, dberr.ErrInvalidValue)
	}
	switch kind {
	case KindHash:
		return newHashIndex(col, typ), nil
	case KindTree:
		return newTreeIndex(col, typ, degree), nil
	case KindBitmap:
		return newBitmapIndex(col, typ), nil
	}
	return nil, fmt.Errorf("index kind %v: %w", kind, dberr.ErrInvalidValue)
}

type searchBound struct{ name string }

func (b *searchBound) String() string { return b.name }

// Open-ended range bounds.
var (
	MinimumSearchKey any = &searchBound{name: "MINIMUM_SEARCH_KEY"}
	MaximumSearchKey any = &searchBound{name: "MAXIMUM_SEARCH_KEY"}
)

func isBound(v any) bool {
	_, ok := v.(*searchBound)
	return ok
}

// checkKey normalizes a concrete key against the column type.
func checkKey(typ record.ColumnType, key any) (any, error) {
	if key == nil || isBound(key) {
		return nil, fmt.Errorf("key %v: %w", key, dberr.ErrInvalidKey)
	}
	k, err := record.Normalize(typ, key)
	if err != nil {
		return nil, fmt.Errorf("key %v for %v column: %w", key, typ, dberr.ErrInvalidKey)
	}
	return k, nil
}

// keyRange is a validated range; a nil low/high means unbounded.
type keyRange struct {
	low, high             any
	includeLow, includeHi bool
	empty                 bool
}

func newKeyRange(typ record.ColumnType, low, high any, includeLow, includeHigh bool) (keyRange, error) {
	r := keyRange{includeLow: includeLow, includeHi: includeHigh}
	if low == MaximumSearchKey || high == MinimumSearchKey {
		return r, fmt.Errorf("bounds %v..%v: %w", low, high, dberr.ErrInvalidRange)
	}
	var err error
	if low != MinimumSearchKey {
		if r.low, err = checkKey(typ, low); err != nil {
			return r, err
		}
	}
	if high != MaximumSearchKey {
		if r.high, err = checkKey(typ, high); err != nil {
			return r, err
		}
	}
	if r.low != nil && r.high != nil {
		c, err := record.Compare(r.low, r.high)
		if err != nil {
			return r, err
		}
		if c > 0 {
			return r, fmt.Errorf("low %s > high %s: %w",
				record.Format(r.low), record.Format(r.high), dberr.ErrInvalidRange)
		}
		if c == 0 && !(includeLow && includeHigh) {
			r.empty = true
		}
	}
	return r, nil
}

// aboveLow reports whether k satisfies the lower bound.
func (r keyRange) aboveLow(k any) bool {
	if r.low == nil {
		return true
	}
	c, _ := record.Compare(k, r.low)
	return c > 0 || (c == 0 && r.includeLow)
}

// belowHigh reports whether k satisfies the upper bound.
func (r keyRange) belowHigh(k any) bool {
	if r.high == nil {
		return true
	}
	c, _ := record.Compare(k, r.high)
	return c < 0 || (c == 0 && r.includeHi)
}

func (r keyRange) contains(k any) bool { return !r.empty && r.aboveLow(k) && r.belowHigh(k) }
