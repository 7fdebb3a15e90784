package colstore

import (
	"time"

	"github.com/tuannm99/coldb/internal/record"
)

// vector is the typed storage behind a Column. Positions are 1-based.
type vector interface {
	Len() int
	Value(pos int) any
	IsNull(pos int) bool
	Append(v any)
	Set(pos int, v any)
	appendNulls(n int)
	compact(keep []bool)
}

// typedVector stores one Go type plus a null mark per slot. Null slots hold
// the zero value of T.
type typedVector[T any] struct {
	vals  []T
	nulls []bool
}

func newVector(typ record.ColumnType) vector {
	switch typ {
	case record.ColInteger:
		return &typedVector[int64]{}
	case record.ColDouble:
		return &typedVector[float64]{}
	case record.ColString:
		return &typedVector[string]{}
	case record.ColBoolean:
		return &typedVector[bool]{}
	case record.ColDate:
		return &typedVector[time.Time]{}
	case record.ColObject:
		return &typedVector[[]byte]{}
	}
	return nil
}

func (v *typedVector[T]) Len() int { return len(v.vals) }

func (v *typedVector[T]) Value(pos int) any {
	if v.nulls[pos-1] {
		return nil
	}
	return v.vals[pos-1]
}

func (v *typedVector[T]) IsNull(pos int) bool { return v.nulls[pos-1] }

// Append expects a canonical value of T or nil.
func (v *typedVector[T]) Append(x any) {
	if x == nil {
		var zero T
		v.vals = append(v.vals, zero)
		v.nulls = append(v.nulls, true)
		return
	}
	v.vals = append(v.vals, x.(T))
	v.nulls = append(v.nulls, false)
}

func (v *typedVector[T]) Set(pos int, x any) {
	if x == nil {
		var zero T
		v.vals[pos-1] = zero
		v.nulls[pos-1] = true
		return
	}
	v.vals[pos-1] = x.(T)
	v.nulls[pos-1] = false
}

func (v *typedVector[T]) appendNulls(n int) {
	var zero T
	for i := 0; i < n; i++ {
		v.vals = append(v.vals, zero)
		v.nulls = append(v.nulls, true)
	}
}

// compact keeps slot i when keep[i] is true, preserving order.
func (v *typedVector[T]) compact(keep []bool) {
	w := 0
	for i := range v.vals {
		if !keep[i] {
			continue
		}
		v.vals[w] = v.vals[i]
		v.nulls[w] = v.nulls[i]
		w++
	}
	var zero T
	for i := w; i < len(v.vals); i++ {
		v.vals[i] = zero
	}
	v.vals = v.vals[:w]
	v.nulls = v.nulls[:w]
}

// Column is one named, typed column of a Table.
type Column struct {
	id   record.ColumnID
	name string
	typ  record.ColumnType
	vec  vector
}

func newColumn(id record.ColumnID, name string, typ record.ColumnType) *Column {
	return &Column{id: id, name: name, typ: typ, vec: newVector(typ)}
}

func (c *Column) ID() record.ColumnID     { return c.id }
func (c *Column) Name() string            { return c.name }
func (c *Column) Type() record.ColumnType { return c.typ }
func (c *Column) Len() int                { return c.vec.Len() }

// Value returns the cell at a 1-based position; nil means NULL.
func (c *Column) Value(pos int) any { return c.vec.Value(pos) }

func (c *Column) IsNull(pos int) bool { return c.vec.IsNull(pos) }
