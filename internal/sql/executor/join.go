package executor

import (
	"fmt"

	"github.com/tuannm99/coldb/internal/record"
	"github.com/tuannm99/coldb/internal/sql/ast"
)

type keyed struct {
	id record.RowID
	v  any
}

func (ev *evaluator) columnValues(c colRef) []keyed {
	var out []keyed
	_ = ev.sc.tables[c.pos].ScanColumn(c.col.ID(), func(id record.RowID, v any) bool {
		if v != nil {
			out = append(out, keyed{id: id, v: v})
		}
		return true
	})
	return out
}

// pair builds a two-table relation from (a, b) id pairs.
func pair(a, b colRef, pairs [][2]record.RowID) relation {
	r := relation{cols: []int{a.pos, b.pos}}
	swap := a.pos > b.pos
	if swap {
		r.cols = []int{b.pos, a.pos}
	}
	r.rows = make([][]record.RowID, len(pairs))
	for i, p := range pairs {
		if swap {
			r.rows[i] = []record.RowID{p[1], p[0]}
		} else {
			r.rows[i] = []record.RowID{p[0], p[1]}
		}
	}
	return r
}

// joinKey maps equal values to equal keys; mixed INTEGER/DOUBLE joins
// compare as DOUBLE.
func joinKey(v any, mixed bool) any {
	if mixed {
		if i, ok := v.(int64); ok {
			return record.HashKey(float64(i))
		}
	}
	return record.HashKey(v)
}

// hashJoin answers a.col = b.col across two tables. An index on either
// side with the same column type is probed; otherwise the smaller side is
// hashed.
func (ev *evaluator) hashJoin(a, b colRef) (relation, error) {
	sameType := a.col.Type() == b.col.Type()

	if sameType {
		if ix, ok := ev.sc.tables[b.pos].Index(b.col.ID()); ok {
			return ev.probe(a, b, ix.PointQuery, false)
		}
		if ix, ok := ev.sc.tables[a.pos].Index(a.col.ID()); ok {
			return ev.probe(b, a, ix.PointQuery, true)
		}
	}

	av, bv := ev.columnValues(a), ev.columnValues(b)
	swapped := false
	if len(bv) > len(av) {
		av, bv = bv, av
		swapped = true
	}
	build := make(map[any][]record.RowID, len(bv))
	for _, k := range bv {
		hk := joinKey(k.v, !sameType)
		build[hk] = append(build[hk], k.id)
	}
	var pairs [][2]record.RowID
	for _, k := range av {
		for _, other := range build[joinKey(k.v, !sameType)] {
			if swapped {
				pairs = append(pairs, [2]record.RowID{other, k.id})
			} else {
				pairs = append(pairs, [2]record.RowID{k.id, other})
			}
		}
	}
	ev.access = append(ev.access, fmt.Sprintf("HashJoin(%s.%s = %s.%s)",
		ev.sc.names[a.pos], a.col.Name(), ev.sc.names[b.pos], b.col.Name()))
	return pair(a, b, pairs), nil
}

// probe drives outer rows through an index lookup on inner. flipped means
// outer is the right-hand side of the original comparison.
func (ev *evaluator) probe(outer, inner colRef, lookup func(any) (*record.IDCursor, error), flipped bool) (relation, error) {
	ev.access = append(ev.access, fmt.Sprintf("IndexJoin(%s.%s -> %s.%s)",
		ev.sc.names[outer.pos], outer.col.Name(), ev.sc.names[inner.pos], inner.col.Name()))
	var pairs [][2]record.RowID
	for _, k := range ev.columnValues(outer) {
		cur, err := lookup(k.v)
		if err != nil {
			return relation{}, err
		}
		for _, id := range record.Drain(cur) {
			pairs = append(pairs, [2]record.RowID{k.id, id})
		}
	}
	if flipped {
		return pair(inner, outer, swapPairs(pairs)), nil
	}
	return pair(outer, inner, pairs), nil
}

func swapPairs(ps [][2]record.RowID) [][2]record.RowID {
	for i := range ps {
		ps[i][0], ps[i][1] = ps[i][1], ps[i][0]
	}
	return ps
}

// nestedLoop answers a.col op b.col across two tables for non-equality ops.
func (ev *evaluator) nestedLoop(op ast.Op, a, b colRef) (relation, error) {
	ev.access = append(ev.access, fmt.Sprintf("NestedLoop(%s.%s %s %s.%s)",
		ev.sc.names[a.pos], a.col.Name(), op, ev.sc.names[b.pos], b.col.Name()))
	av, bv := ev.columnValues(a), ev.columnValues(b)
	var pairs [][2]record.RowID
	for _, x := range av {
		for _, y := range bv {
			c, err := record.Compare(x.v, y.v)
			if err != nil {
				return relation{}, err
			}
			if op.Holds(c) {
				pairs = append(pairs, [2]record.RowID{x.id, y.id})
			}
		}
	}
	return pair(a, b, pairs), nil
}
