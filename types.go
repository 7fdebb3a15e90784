// Package coldb is the top-level facade for the coldb engine.
package coldb

import (
	"context"

	"github.com/tuannm99/coldb/internal"
	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/engine"
	"github.com/tuannm99/coldb/internal/index"
	"github.com/tuannm99/coldb/internal/record"
	"github.com/tuannm99/coldb/internal/sql/ast"
	"github.com/tuannm99/coldb/internal/sql/executor"
)

type (
	Database = engine.Database
	Config   = internal.ColdbConfig
	Result   = executor.Result
	RowID    = record.RowID

	ColumnType = record.ColumnType
	IndexKind  = index.Kind

	Statement    = ast.Statement
	ColumnDef    = ast.ColumnDef
	CreateTable  = ast.CreateTable
	DropTable    = ast.DropTable
	RenameTable  = ast.RenameTable
	CreateColumn = ast.CreateColumn
	DropColumn   = ast.DropColumn
	RenameColumn = ast.RenameColumn
	CreateIndex  = ast.CreateIndex
	DropIndex    = ast.DropIndex
	Query        = ast.Query
	Insert       = ast.Insert
	Update       = ast.Update
	Delete       = ast.Delete
	Assignment   = ast.Assignment

	Expr       = ast.Expr
	Expression = ast.Expression
	Constant   = ast.Constant

	QueryExecutionError = dberr.QueryExecutionError
	ErrorKind           = dberr.Kind
)

const (
	Integer = record.ColInteger
	Double  = record.ColDouble
	String  = record.ColString
	Boolean = record.ColBoolean
	Date    = record.ColDate
	Object  = record.ColObject

	Hash   = index.KindHash
	Tree   = index.KindTree
	Bitmap = index.KindBitmap
)

// Predicate and literal constructors.
var (
	Col    = ast.Col
	Lit    = ast.Lit
	Litf   = ast.Litf
	Null   = ast.Null
	And    = ast.And
	Or     = ast.Or
	Eq     = ast.Eq
	Lt     = ast.Lt
	Gt     = ast.Gt
	Le     = ast.Le
	Ge     = ast.Ge
	Values = ast.Values
)

var (
	ErrDatabaseClosed           = engine.ErrDatabaseClosed
	ErrNoSuchTable              = dberr.ErrNoSuchTable
	ErrNoSuchColumn             = dberr.ErrNoSuchColumn
	ErrNoSuchIndex              = dberr.ErrNoSuchIndex
	ErrNoSuchRow                = dberr.ErrNoSuchRow
	ErrTableAlreadyExists       = dberr.ErrTableAlreadyExists
	ErrColumnAlreadyExists      = dberr.ErrColumnAlreadyExists
	ErrIndexAlreadyExists       = dberr.ErrIndexAlreadyExists
	ErrTransactionAlreadyActive = dberr.ErrTransactionAlreadyActive
	ErrNoTransactionActive      = dberr.ErrNoTransactionActive
	ErrInvalidKey               = dberr.ErrInvalidKey
	ErrInvalidRange             = dberr.ErrInvalidRange
	ErrInvalidValue             = dberr.ErrInvalidValue
	ErrTypeMismatch             = dberr.ErrTypeMismatch
	ErrInvalidName              = dberr.ErrInvalidName
	ErrInvalidPredicate         = dberr.ErrInvalidPredicate
	ErrCorruptImage             = dberr.ErrCorruptImage
	ErrRangeQueryNotSupported   = dberr.ErrRangeQueryNotSupported
)

// KindOf classifies any error returned by the engine.
func KindOf(err error) ErrorKind { return dberr.KindOf(err) }

func DefaultConfig() *Config { return internal.DefaultConfig() }

func LoadConfig(path string) (*Config, error) { return internal.LoadConfig(path) }

// Open opens (or creates) the database described by cfg; nil uses defaults.
func Open(ctx context.Context, cfg *Config) (*Database, error) {
	return engine.Open(ctx, cfg)
}
