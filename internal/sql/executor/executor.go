// Package executor runs pre-structured statements against the catalog.
package executor

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/tuannm99/coldb/internal/catalog"
	"github.com/tuannm99/coldb/internal/colstore"
	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/record"
	"github.com/tuannm99/coldb/internal/sql/ast"
)

// Hooks lets the transaction manager drive auto-commit around statements.
type Hooks interface {
	BeforeStatement(kind string) error
	AfterStatement(kind string, mutated bool) error
}

// Executor executes statements against a Catalog.
type Executor struct {
	cat   *catalog.Catalog
	hooks Hooks
}

// NewExecutor returns an executor over cat. hooks may be nil.
func NewExecutor(cat *catalog.Catalog, hooks Hooks) *Executor {
	return &Executor{cat: cat, hooks: hooks}
}

// Exec is the top-level entry: Statement -> Result. Every failure is a
// *dberr.QueryExecutionError.
func (e *Executor) Exec(stmt ast.Statement) (*Result, error) {
	if stmt == nil {
		return nil, dberr.Execution("nil", fmt.Errorf("nil statement: %w", dberr.ErrInvalidValue))
	}
	kind := string(stmt.Kind())
	label := describe(stmt)

	if e.hooks != nil {
		if err := e.hooks.BeforeStatement(kind); err != nil {
			return nil, dberr.Execution(label, err)
		}
	}
	res, err := e.exec(stmt)
	if err != nil {
		slog.Debug("executor.failed", "stmt", label, "err", err)
		return nil, dberr.Execution(label, err)
	}
	if e.hooks != nil {
		if err := e.hooks.AfterStatement(kind, res.mutated); err != nil {
			return nil, dberr.Execution(label, fmt.Errorf("auto-commit: %w", err))
		}
	}
	return res, nil
}

func describe(stmt ast.Statement) string {
	switch s := stmt.(type) {
	case *ast.Query:
		return fmt.Sprintf("query %v", s.Tables)
	case *ast.Insert:
		return "insert " + s.Table
	case *ast.Update:
		return "update " + s.Table
	case *ast.Delete:
		return "delete " + s.Table
	case *ast.CreateTable:
		return "create_table " + s.Name
	case *ast.DropTable:
		return "drop_table " + s.Name
	case *ast.RenameTable:
		return "rename_table " + s.Name
	case *ast.CreateColumn:
		return "create_column " + s.Table + "." + s.Column
	case *ast.DropColumn:
		return "drop_column " + s.Table + "." + s.Column
	case *ast.RenameColumn:
		return "rename_column " + s.Table + "." + s.Column
	case *ast.CreateIndex:
		return "create_index " + s.Table + "." + s.Column
	case *ast.DropIndex:
		return "drop_index " + s.Table + "." + s.Column
	}
	return string(stmt.Kind())
}

func (e *Executor) exec(stmt ast.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *ast.Query:
		return e.execQuery(s)
	case *ast.Insert:
		return e.execInsert(s)
	case *ast.Update:
		return e.execUpdate(s)
	case *ast.Delete:
		return e.execDelete(s)

	case *ast.CreateTable:
		return e.execCreateTable(s)
	case *ast.DropTable:
		return e.ddl(s.Name, func(t *colstore.Table) error { return e.cat.DeleteTable(t.ID()) })
	case *ast.RenameTable:
		return e.ddl(s.Name, func(t *colstore.Table) error { return e.cat.RenameTable(t.ID(), s.NewName) })
	case *ast.CreateColumn:
		return e.ddl(s.Table, func(t *colstore.Table) error {
			_, err := t.CreateColumn(s.Column, s.Type)
			return err
		})
	case *ast.DropColumn:
		return e.columnDDL(s.Table, s.Column, func(t *colstore.Table, c *colstore.Column) error {
			return t.DropColumn(c.ID())
		})
	case *ast.RenameColumn:
		return e.columnDDL(s.Table, s.Column, func(t *colstore.Table, c *colstore.Column) error {
			return t.RenameColumn(c.ID(), s.NewName)
		})
	case *ast.CreateIndex:
		return e.columnDDL(s.Table, s.Column, func(t *colstore.Table, c *colstore.Column) error {
			_, err := t.CreateIndex(c.ID(), s.Index)
			return err
		})
	case *ast.DropIndex:
		return e.columnDDL(s.Table, s.Column, func(t *colstore.Table, c *colstore.Column) error {
			return t.DropIndex(c.ID())
		})
	default:
		return nil, fmt.Errorf("executor: unsupported statement type %T: %w", stmt, dberr.ErrInvalidValue)
	}
}

// ---- DDL ----

func (e *Executor) execCreateTable(s *ast.CreateTable) (*Result, error) {
	cols := make([]record.Column, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = record.Column{Name: c.Name, Type: c.Type}
	}
	if _, err := e.cat.CreateTable(s.Name, cols); err != nil {
		return nil, err
	}
	return &Result{mutated: true}, nil
}

func (e *Executor) ddl(table string, fn func(t *colstore.Table) error) (*Result, error) {
	t, err := e.cat.TableByName(table)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	return &Result{mutated: true}, nil
}

func (e *Executor) columnDDL(table, column string, fn func(t *colstore.Table, c *colstore.Column) error) (*Result, error) {
	return e.ddl(table, func(t *colstore.Table) error {
		c, err := t.ColumnByName(column)
		if err != nil {
			return err
		}
		return fn(t, c)
	})
}

// ---- DML ----

func (e *Executor) resolveScope(names []string) (*scope, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no tables: %w", dberr.ErrInvalidValue)
	}
	sc := &scope{names: names, tables: make([]*colstore.Table, len(names))}
	for i, n := range names {
		if slices.Index(names, n) != i {
			return nil, fmt.Errorf("table %s listed twice: %w", n, dberr.ErrInvalidValue)
		}
		t, err := e.cat.TableByName(n)
		if err != nil {
			return nil, err
		}
		sc.tables[i] = t
	}
	return sc, nil
}

// match evaluates where over sc and widens the result to every table.
func match(sc *scope, where ast.Expr) (relation, []string, error) {
	all := make([]int, len(sc.tables))
	for i := range all {
		all[i] = i
	}
	// the unit relation: one empty tuple over no tables
	rel := relation{rows: [][]record.RowID{{}}}
	ev := &evaluator{sc: sc}
	if where != nil {
		var err error
		if rel, err = ev.eval(where); err != nil {
			return relation{}, nil, err
		}
	}
	rel = sc.widen(rel, all)
	rel.sortRows()
	return rel, ev.access, nil
}

// matchIDs returns the matching ids of a single-table statement.
func (e *Executor) matchIDs(table string, where ast.Expr) (*colstore.Table, []record.RowID, []string, error) {
	sc, err := e.resolveScope([]string{table})
	if err != nil {
		return nil, nil, nil, err
	}
	rel, access, err := match(sc, where)
	if err != nil {
		return nil, nil, nil, err
	}
	ids := make([]record.RowID, len(rel.rows))
	for i, row := range rel.rows {
		ids[i] = row[0]
	}
	return sc.tables[0], ids, access, nil
}

func (e *Executor) execQuery(s *ast.Query) (*Result, error) {
	sc, err := e.resolveScope(s.Tables)
	if err != nil {
		return nil, err
	}
	rel, access, err := match(sc, s.Where)
	if err != nil {
		return nil, err
	}

	outs, err := sc.projection(s.Columns)
	if err != nil {
		return nil, err
	}
	res := &Result{Access: access}
	for _, o := range outs {
		res.Columns = append(res.Columns, o.label)
	}
	for _, row := range rel.rows {
		vals := make([]any, len(outs))
		for i, o := range outs {
			v, err := sc.tables[o.pos].Value(row[o.pos], o.col.ID())
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		res.Rows = append(res.Rows, vals)
	}
	if len(sc.tables) == 1 {
		res.RowIDs = make([]record.RowID, len(rel.rows))
		for i, row := range rel.rows {
			res.RowIDs[i] = row[0]
		}
	}
	res.AffectedRows = int64(len(res.Rows))
	slog.Debug("executor.query", "tables", s.Tables, "rows", len(res.Rows), "access", access)
	return res, nil
}

// literal converts a constant for a column of type typ.
func literal(typ record.ColumnType, c *ast.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("missing value: %w", dberr.ErrInvalidValue)
	}
	switch c.Kind {
	case ast.NullLiteral:
		return nil, nil
	case ast.ValueLiteral:
		return record.Parse(typ, c.Value)
	}
	return nil, fmt.Errorf("column reference %s used as a value: %w", c.Value, dberr.ErrInvalidValue)
}

func (e *Executor) execInsert(s *ast.Insert) (*Result, error) {
	t, err := e.cat.TableByName(s.Table)
	if err != nil {
		return nil, err
	}
	cols := t.Columns()
	if len(s.Columns) > 0 {
		cols = make([]*colstore.Column, len(s.Columns))
		for i, name := range s.Columns {
			if cols[i], err = t.ColumnByName(name); err != nil {
				return nil, err
			}
		}
	}
	ids := make([]record.ColumnID, len(cols))
	for i, c := range cols {
		ids[i] = c.ID()
	}

	rows := make([][]any, len(s.Rows))
	for r, in := range s.Rows {
		if len(in) != len(cols) {
			return nil, fmt.Errorf("row %d has %d values for %d columns: %w", r, len(in), len(cols), dberr.ErrInvalidValue)
		}
		row := make([]any, len(in))
		for i, c := range in {
			if row[i], err = literal(cols[i].Type(), c); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", r, cols[i].Name(), err)
			}
		}
		rows[r] = row
	}

	added, err := t.AddRows(ids, rows)
	if err != nil {
		return nil, err
	}
	return &Result{AffectedRows: int64(len(added)), RowIDs: added, mutated: len(added) > 0}, nil
}

func (e *Executor) execUpdate(s *ast.Update) (*Result, error) {
	t, ids, access, err := e.matchIDs(s.Table, s.Where)
	if err != nil {
		return nil, err
	}
	if len(s.Set) == 0 {
		return nil, fmt.Errorf("update without assignments: %w", dberr.ErrInvalidValue)
	}
	cols := make([]record.ColumnID, len(s.Set))
	vals := make([]any, len(s.Set))
	for i, a := range s.Set {
		c, err := t.ColumnByName(a.Column)
		if err != nil {
			return nil, err
		}
		cols[i] = c.ID()
		if vals[i], err = literal(c.Type(), a.Value); err != nil {
			return nil, fmt.Errorf("set %s: %w", a.Column, err)
		}
	}

	n, err := t.UpdateRows(ids, cols, [][]any{vals})
	if err != nil {
		return nil, err
	}
	return &Result{AffectedRows: int64(n), RowIDs: ids, Access: access, mutated: n > 0}, nil
}

func (e *Executor) execDelete(s *ast.Delete) (*Result, error) {
	t, ids, access, err := e.matchIDs(s.Table, s.Where)
	if err != nil {
		return nil, err
	}
	n, err := t.DeleteRows(ids)
	if err != nil {
		return nil, err
	}
	return &Result{AffectedRows: int64(n), RowIDs: ids, Access: access, mutated: n > 0}, nil
}
