// Package ast defines pre-structured statements and the predicate tree the
// executor consumes.
package ast

import (
	"fmt"
	"strings"

	"github.com/tuannm99/coldb/internal/index"
	"github.com/tuannm99/coldb/internal/record"
)

// Kind names a statement class. Auto-commit batches consecutive statements
// of the same kind.
type Kind string

const (
	KindQuery        Kind = "query"
	KindInsert       Kind = "insert"
	KindUpdate       Kind = "update"
	KindDelete       Kind = "delete"
	KindCreateTable  Kind = "create_table"
	KindDropTable    Kind = "drop_table"
	KindRenameTable  Kind = "rename_table"
	KindCreateColumn Kind = "create_column"
	KindDropColumn   Kind = "drop_column"
	KindRenameColumn Kind = "rename_column"
	KindCreateIndex  Kind = "create_index"
	KindDropIndex    Kind = "drop_index"
)

// Statement is the root interface for all statements.
type Statement interface {
	Kind() Kind
	stmtNode()
}

// ----- DDL -----

type ColumnDef struct {
	Name string
	Type record.ColumnType
}

type CreateTable struct {
	Name    string
	Columns []ColumnDef
}

type DropTable struct {
	Name string
}

type RenameTable struct {
	Name    string
	NewName string
}

type CreateColumn struct {
	Table  string
	Column string
	Type   record.ColumnType
}

type DropColumn struct {
	Table  string
	Column string
}

type RenameColumn struct {
	Table   string
	Column  string
	NewName string
}

type CreateIndex struct {
	Table  string
	Column string
	Index  index.Kind
}

type DropIndex struct {
	Table  string
	Column string
}

// ----- DML -----

// Query selects Columns ("col" or "table.col"; empty means every column)
// from the cross product of Tables filtered by Where (nil keeps all rows).
type Query struct {
	Tables  []string
	Columns []string
	Where   Expr
}

// Insert appends Rows. Columns lists the target columns in row order; empty
// means every column of the table in declaration order.
type Insert struct {
	Table   string
	Columns []string
	Rows    [][]*Constant
}

type Assignment struct {
	Column string
	Value  *Constant
}

type Update struct {
	Table string
	Set   []Assignment
	Where Expr
}

type Delete struct {
	Table string
	Where Expr
}

func (*CreateTable) Kind() Kind  { return KindCreateTable }
func (*DropTable) Kind() Kind    { return KindDropTable }
func (*RenameTable) Kind() Kind  { return KindRenameTable }
func (*CreateColumn) Kind() Kind { return KindCreateColumn }
func (*DropColumn) Kind() Kind   { return KindDropColumn }
func (*RenameColumn) Kind() Kind { return KindRenameColumn }
func (*CreateIndex) Kind() Kind  { return KindCreateIndex }
func (*DropIndex) Kind() Kind    { return KindDropIndex }
func (*Query) Kind() Kind        { return KindQuery }
func (*Insert) Kind() Kind       { return KindInsert }
func (*Update) Kind() Kind       { return KindUpdate }
func (*Delete) Kind() Kind       { return KindDelete }

func (*CreateTable) stmtNode()  {}
func (*DropTable) stmtNode()    {}
func (*RenameTable) stmtNode()  {}
func (*CreateColumn) stmtNode() {}
func (*DropColumn) stmtNode()   {}
func (*RenameColumn) stmtNode() {}
func (*CreateIndex) stmtNode()  {}
func (*DropIndex) stmtNode()    {}
func (*Query) stmtNode()        {}
func (*Insert) stmtNode()       {}
func (*Update) stmtNode()       {}
func (*Delete) stmtNode()       {}

// ----- Expressions -----

// Expr is either an *Expression or a *Constant.
type Expr interface {
	exprNode()
	String() string
}

type Op uint8

const (
	OpAnd Op = iota + 1
	OpOr
	OpEq
	OpLt
	OpGt
	OpLe
	OpGe
)

func (o Op) String() string {
	switch o {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpEq:
		return "="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLe:
		return "<="
	case OpGe:
		return ">="
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// IsComparison reports whether o compares two operands.
func (o Op) IsComparison() bool { return o >= OpEq && o <= OpGe }

// Flip returns the operator that keeps a comparison true when its operands
// swap sides.
func (o Op) Flip() Op {
	switch o {
	case OpLt:
		return OpGt
	case OpGt:
		return OpLt
	case OpLe:
		return OpGe
	case OpGe:
		return OpLe
	}
	return o
}

// Holds reports whether a comparison result c = cmp(left, right) satisfies o.
func (o Op) Holds(c int) bool {
	switch o {
	case OpEq:
		return c == 0
	case OpLt:
		return c < 0
	case OpGt:
		return c > 0
	case OpLe:
		return c <= 0
	case OpGe:
		return c >= 0
	}
	return false
}

type Expression struct {
	Op       Op
	Operands []Expr
}

func (*Expression) exprNode() {}

func (e *Expression) String() string {
	parts := make([]string, len(e.Operands))
	for i, o := range e.Operands {
		parts[i] = o.String()
	}
	if e.Op == OpAnd || e.Op == OpOr {
		return "(" + strings.Join(parts, " "+e.Op.String()+" ") + ")"
	}
	return strings.Join(parts, " "+e.Op.String()+" ")
}

type ConstKind uint8

const (
	ColumnName ConstKind = iota + 1
	ValueLiteral
	NullLiteral
)

// Constant is a leaf: a column reference ("col" or "table.col"), a literal
// parsed against the column it is compared with, or NULL.
type Constant struct {
	Kind  ConstKind
	Value string
}

func (*Constant) exprNode() {}

func (c *Constant) String() string {
	switch c.Kind {
	case ColumnName:
		return c.Value
	case NullLiteral:
		return "NULL"
	}
	return "'" + c.Value + "'"
}

// SplitColumn splits "table.col" into its parts; table is empty for a bare name.
func SplitColumn(ref string) (table, column string) {
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return "", ref
}

// ----- constructors -----

func Col(ref string) *Constant { return &Constant{Kind: ColumnName, Value: ref} }
func Lit(v string) *Constant   { return &Constant{Kind: ValueLiteral, Value: v} }
func Null() *Constant          { return &Constant{Kind: NullLiteral} }

// Litf formats v with fmt and wraps it as a literal.
func Litf(v any) *Constant { return Lit(fmt.Sprint(v)) }

func And(ops ...Expr) *Expression { return &Expression{Op: OpAnd, Operands: ops} }
func Or(ops ...Expr) *Expression  { return &Expression{Op: OpOr, Operands: ops} }
func Eq(a, b Expr) *Expression    { return &Expression{Op: OpEq, Operands: []Expr{a, b}} }
func Lt(a, b Expr) *Expression    { return &Expression{Op: OpLt, Operands: []Expr{a, b}} }
func Gt(a, b Expr) *Expression    { return &Expression{Op: OpGt, Operands: []Expr{a, b}} }
func Le(a, b Expr) *Expression    { return &Expression{Op: OpLe, Operands: []Expr{a, b}} }
func Ge(a, b Expr) *Expression    { return &Expression{Op: OpGe, Operands: []Expr{a, b}} }

// Values builds one insert row of literals; nil entries become NULL.
func Values(vals ...any) []*Constant {
	row := make([]*Constant, len(vals))
	for i, v := range vals {
		if v == nil {
			row[i] = Null()
			continue
		}
		row[i] = Litf(v)
	}
	return row
}
