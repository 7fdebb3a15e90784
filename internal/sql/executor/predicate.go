package executor

import (
	"fmt"
	"slices"

	"github.com/tuannm99/coldb/internal/colstore"
	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/record"
	"github.com/tuannm99/coldb/internal/sql/ast"
	"github.com/tuannm99/coldb/internal/sql/planner"
)

// colRef is a resolved column reference.
type colRef struct {
	pos int
	col *colstore.Column
}

func (sc *scope) resolve(ref string) (colRef, error) {
	tname, cname := ast.SplitColumn(ref)
	if tname != "" {
		pos := slices.Index(sc.names, tname)
		if pos < 0 {
			return colRef{}, fmt.Errorf("table %s in %q: %w", tname, ref, dberr.ErrNoSuchTable)
		}
		c, err := sc.tables[pos].ColumnByName(cname)
		if err != nil {
			return colRef{}, err
		}
		return colRef{pos: pos, col: c}, nil
	}

	found := colRef{pos: -1}
	for pos, t := range sc.tables {
		c, err := t.ColumnByName(cname)
		if err != nil {
			continue
		}
		if found.pos >= 0 {
			return colRef{}, fmt.Errorf("column %q is ambiguous: %w", ref, dberr.ErrInvalidPredicate)
		}
		found = colRef{pos: pos, col: c}
	}
	if found.pos < 0 {
		return colRef{}, fmt.Errorf("column %q: %w", ref, dberr.ErrNoSuchColumn)
	}
	return found, nil
}

func compatible(a, b record.ColumnType) bool {
	numeric := func(t record.ColumnType) bool { return t == record.ColInteger || t == record.ColDouble }
	return a == b || (numeric(a) && numeric(b))
}

// evaluator walks one predicate tree.
type evaluator struct {
	sc     *scope
	access []string
}

func (ev *evaluator) eval(e ast.Expr) (relation, error) {
	x, ok := e.(*ast.Expression)
	if !ok {
		return relation{}, fmt.Errorf("bare operand %s: %w", e, dberr.ErrInvalidPredicate)
	}
	switch {
	case x.Op == ast.OpAnd || x.Op == ast.OpOr:
		if len(x.Operands) == 0 {
			return relation{}, fmt.Errorf("empty %s: %w", x.Op, dberr.ErrInvalidPredicate)
		}
		acc, err := ev.eval(x.Operands[0])
		if err != nil {
			return relation{}, err
		}
		for _, o := range x.Operands[1:] {
			r, err := ev.eval(o)
			if err != nil {
				return relation{}, err
			}
			if x.Op == ast.OpAnd {
				acc = join(acc, r)
			} else {
				acc = ev.sc.union(acc, r)
			}
		}
		return acc, nil
	case x.Op.IsComparison():
		if len(x.Operands) != 2 {
			return relation{}, fmt.Errorf("%s needs 2 operands, got %d: %w", x.Op, len(x.Operands), dberr.ErrInvalidPredicate)
		}
		l, lok := x.Operands[0].(*ast.Constant)
		r, rok := x.Operands[1].(*ast.Constant)
		if !lok || !rok {
			return relation{}, fmt.Errorf("nested operand in %s: %w", x, dberr.ErrInvalidPredicate)
		}
		return ev.compare(x.Op, l, r)
	}
	return relation{}, fmt.Errorf("operator %s: %w", x.Op, dberr.ErrInvalidPredicate)
}

func (ev *evaluator) compare(op ast.Op, l, r *ast.Constant) (relation, error) {
	lcol, rcol := l.Kind == ast.ColumnName, r.Kind == ast.ColumnName
	switch {
	case lcol && rcol:
		a, err := ev.sc.resolve(l.Value)
		if err != nil {
			return relation{}, err
		}
		b, err := ev.sc.resolve(r.Value)
		if err != nil {
			return relation{}, err
		}
		if !compatible(a.col.Type(), b.col.Type()) {
			return relation{}, fmt.Errorf("%s %s %s: %w", l, op, r, dberr.ErrTypeMismatch)
		}
		if a.pos == b.pos {
			return ev.sameTable(op, a, b)
		}
		if op == ast.OpEq {
			return ev.hashJoin(a, b)
		}
		return ev.nestedLoop(op, a, b)
	case lcol:
		return ev.columnVersus(op, l.Value, r)
	case rcol:
		return ev.columnVersus(op.Flip(), r.Value, l)
	}
	return relation{}, fmt.Errorf("%s %s %s compares no column: %w", l, op, r, dberr.ErrInvalidPredicate)
}

// columnVersus selects rows where column op value holds.
func (ev *evaluator) columnVersus(op ast.Op, ref string, v *ast.Constant) (relation, error) {
	c, err := ev.sc.resolve(ref)
	if err != nil {
		return relation{}, err
	}
	t := ev.sc.tables[c.pos]

	if v.Kind == ast.NullLiteral {
		if op != ast.OpEq {
			return emptyRelation(c.pos), nil
		}
		var ids []record.RowID
		err := t.ScanColumn(c.col.ID(), func(id record.RowID, x any) bool {
			if x == nil {
				ids = append(ids, id)
			}
			return true
		})
		return singleRelation(c.pos, ids), err
	}

	key, err := record.Parse(c.col.Type(), v.Value)
	if err != nil {
		return relation{}, fmt.Errorf("literal for %s: %w", ref, err)
	}
	plan, err := planner.BuildAccess(t, c.col.ID(), op, key)
	if err != nil {
		return relation{}, err
	}
	ev.access = append(ev.access, plan.String())
	ids, err := runAccess(t, plan)
	if err != nil {
		return relation{}, err
	}
	return singleRelation(c.pos, ids), nil
}

func runAccess(t *colstore.Table, p planner.Plan) ([]record.RowID, error) {
	switch plan := p.(type) {
	case *planner.IndexLookupPlan:
		cur, err := plan.Index.PointQuery(plan.Key)
		if err != nil {
			return nil, err
		}
		return record.Drain(cur), nil
	case *planner.IndexRangePlan:
		cur, err := plan.Index.RangeQuery(plan.Low, plan.High, plan.IncludeLow, plan.IncludeHigh)
		if err != nil {
			return nil, err
		}
		return record.Drain(cur), nil
	case *planner.SeqScanPlan:
		var (
			ids  []record.RowID
			cerr error
		)
		err := t.ScanColumn(plan.Column, func(id record.RowID, x any) bool {
			if x == nil {
				return true
			}
			c, err := record.Compare(x, plan.Key)
			if err != nil {
				cerr = err
				return false
			}
			if plan.Op.Holds(c) {
				ids = append(ids, id)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		return ids, cerr
	}
	return nil, fmt.Errorf("executor: unsupported plan type %T", p)
}

// sameTable compares two columns of one table row by row.
func (ev *evaluator) sameTable(op ast.Op, a, b colRef) (relation, error) {
	t := ev.sc.tables[a.pos]
	var ids []record.RowID
	for _, id := range t.RowIDs() {
		va, err := t.Value(id, a.col.ID())
		if err != nil {
			return relation{}, err
		}
		vb, err := t.Value(id, b.col.ID())
		if err != nil {
			return relation{}, err
		}
		if va == nil || vb == nil {
			continue
		}
		c, err := record.Compare(va, vb)
		if err != nil {
			return relation{}, err
		}
		if op.Holds(c) {
			ids = append(ids, id)
		}
	}
	return singleRelation(a.pos, ids), nil
}
