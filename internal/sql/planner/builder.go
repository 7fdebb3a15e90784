package planner

import (
	"fmt"

	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/index"
	"github.com/tuannm99/coldb/internal/record"
	"github.com/tuannm99/coldb/internal/sql/ast"
)

// IndexSource is the part of a table the planner looks at.
type IndexSource interface {
	Name() string
	Index(col record.ColumnID) (index.Index, bool)
}

// BuildAccess chooses how to find the rows where column op key holds.
// key must be a non-NULL canonical value of the column type.
func BuildAccess(t IndexSource, col record.ColumnID, op ast.Op, key any) (Plan, error) {
	if !op.IsComparison() {
		return nil, fmt.Errorf("planner: %s is not a comparison: %w", op, dberr.ErrInvalidPredicate)
	}
	if key == nil {
		return nil, fmt.Errorf("planner: NULL key: %w", dberr.ErrInvalidKey)
	}

	ix, ok := t.Index(col)
	if !ok {
		return &SeqScanPlan{Table: t.Name(), Column: col, Op: op, Key: key}, nil
	}
	if op == ast.OpEq {
		return &IndexLookupPlan{Table: t.Name(), Index: ix, Key: key}, nil
	}
	if ix.Kind() == index.KindHash {
		return &SeqScanPlan{Table: t.Name(), Column: col, Op: op, Key: key}, nil
	}

	p := &IndexRangePlan{
		Table: t.Name(),
		Index: ix,
		Low:   index.MinimumSearchKey,
		High:  index.MaximumSearchKey,
	}
	switch op {
	case ast.OpLt, ast.OpLe:
		p.High, p.IncludeHigh, p.IncludeLow = key, op == ast.OpLe, true
	case ast.OpGt, ast.OpGe:
		p.Low, p.IncludeLow, p.IncludeHigh = key, op == ast.OpGe, true
	}
	return p, nil
}
