// Package planner picks the access path for a column-versus-literal
// comparison: an index point lookup, an index range scan, or a full scan.
package planner

import (
	"fmt"

	"github.com/tuannm99/coldb/internal/index"
	"github.com/tuannm99/coldb/internal/record"
	"github.com/tuannm99/coldb/internal/sql/ast"
)

// Plan is the interface for access paths.
type Plan interface {
	planNode()
	String() string
}

// ----- Plan nodes -----

// SeqScanPlan reads every row of Column and keeps those where
// value Op Key holds.
type SeqScanPlan struct {
	Table  string
	Column record.ColumnID
	Op     ast.Op
	Key    any
}

func (*SeqScanPlan) planNode() {}

func (p *SeqScanPlan) String() string {
	return fmt.Sprintf("SeqScan(%s col=%d %s %s)", p.Table, p.Column, p.Op, record.Format(p.Key))
}

// IndexLookupPlan answers an equality through any index kind.
type IndexLookupPlan struct {
	Table string
	Index index.Index
	Key   any
}

func (*IndexLookupPlan) planNode() {}

func (p *IndexLookupPlan) String() string {
	return fmt.Sprintf("IndexLookup(%s %s col=%d key=%s)",
		p.Table, p.Index.Kind(), p.Index.ColumnID(), record.Format(p.Key))
}

// IndexRangePlan answers an inequality through an ordered index.
type IndexRangePlan struct {
	Table       string
	Index       index.Index
	Low, High   any
	IncludeLow  bool
	IncludeHigh bool
}

func (*IndexRangePlan) planNode() {}

func (p *IndexRangePlan) String() string {
	return fmt.Sprintf("IndexRange(%s %s col=%d %v..%v)",
		p.Table, p.Index.Kind(), p.Index.ColumnID(), p.Low, p.High)
}
