package executor

import (
	"slices"

	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/tuannm99/coldb/internal/alias/bx"
	"github.com/tuannm99/coldb/internal/colstore"
	"github.com/tuannm99/coldb/internal/record"
)

// scope is the FROM list of a statement.
type scope struct {
	names  []string
	tables []*colstore.Table
}

// relation is a set of row-id tuples over a subset of the scope's tables.
// cols holds ascending table positions; every tuple has one id per position.
type relation struct {
	cols []int
	rows [][]record.RowID
}

func (r relation) single() bool { return len(r.cols) == 1 }

func emptyRelation(cols ...int) relation { return relation{cols: cols} }

// singleRelation wraps ids of one table.
func singleRelation(pos int, ids []record.RowID) relation {
	rows := make([][]record.RowID, len(ids))
	for i, id := range ids {
		rows[i] = []record.RowID{id}
	}
	return relation{cols: []int{pos}, rows: rows}
}

func (sc *scope) full(pos int) relation {
	return singleRelation(pos, sc.tables[pos].RowIDs())
}

func (r relation) bitmap() *roaring64.Bitmap {
	b := roaring64.New()
	for _, row := range r.rows {
		b.Add(uint64(row[0]))
	}
	return b
}

func fromBitmap(pos int, b *roaring64.Bitmap) relation {
	ids := make([]record.RowID, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		ids = append(ids, record.RowID(it.Next()))
	}
	return singleRelation(pos, ids)
}

// tupleKey encodes the ids at the given tuple offsets as a map key.
func tupleKey(row []record.RowID, at []int) string {
	w := bx.NewWriter(8 * len(at))
	for _, i := range at {
		w.U64(uint64(row[i]))
	}
	return string(w.Bytes())
}

func offsets(cols, of []int) []int {
	out := make([]int, len(of))
	for i, c := range of {
		out[i] = slices.Index(cols, c)
	}
	return out
}

func mergeCols(a, b []int) []int {
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}

func sharedCols(a, b []int) []int {
	var out []int
	for _, c := range a {
		if slices.Contains(b, c) {
			out = append(out, c)
		}
	}
	return out
}

// join is the natural join of two relations on their shared tables; with
// no shared table it is the cross product.
func join(a, b relation) relation {
	if a.single() && b.single() && a.cols[0] == b.cols[0] {
		return fromBitmap(a.cols[0], roaring64.And(a.bitmap(), b.bitmap()))
	}

	cols := mergeCols(a.cols, b.cols)
	shared := sharedCols(a.cols, b.cols)
	aKey, bKey := offsets(a.cols, shared), offsets(b.cols, shared)
	aAt, bAt := offsets(cols, a.cols), offsets(cols, b.cols)

	build := make(map[string][][]record.RowID, len(b.rows))
	for _, row := range b.rows {
		k := tupleKey(row, bKey)
		build[k] = append(build[k], row)
	}

	out := relation{cols: cols}
	for _, ra := range a.rows {
		for _, rb := range build[tupleKey(ra, aKey)] {
			t := make([]record.RowID, len(cols))
			for i, at := range aAt {
				t[at] = ra[i]
			}
			for i, at := range bAt {
				t[at] = rb[i]
			}
			out.rows = append(out.rows, t)
		}
	}
	return out
}

// widen extends r to cover cols by crossing it with every row of each
// missing table.
func (sc *scope) widen(r relation, cols []int) relation {
	for _, c := range cols {
		if !slices.Contains(r.cols, c) {
			r = join(r, sc.full(c))
		}
	}
	return r
}

// union merges two relations after widening both to a common table set.
func (sc *scope) union(a, b relation) relation {
	if a.single() && b.single() && a.cols[0] == b.cols[0] {
		return fromBitmap(a.cols[0], roaring64.Or(a.bitmap(), b.bitmap()))
	}
	cols := mergeCols(a.cols, b.cols)
	a, b = sc.widen(a, cols), sc.widen(b, cols)

	all := offsets(cols, cols)
	seen := make(map[string]bool, len(a.rows)+len(b.rows))
	out := relation{cols: cols}
	for _, rows := range [][][]record.RowID{a.rows, b.rows} {
		for _, row := range rows {
			k := tupleKey(row, all)
			if seen[k] {
				continue
			}
			seen[k] = true
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// sortRows orders tuples by id, left table first.
func (r relation) sortRows() {
	slices.SortFunc(r.rows, func(x, y []record.RowID) int { return slices.Compare(x, y) })
}
