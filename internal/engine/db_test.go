package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/coldb/internal"
	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/index"
	"github.com/tuannm99/coldb/internal/record"
	"github.com/tuannm99/coldb/internal/sql/ast"
)

func testConfig(t *testing.T) *internal.ColdbConfig {
	t.Helper()
	cfg := internal.DefaultConfig()
	cfg.Storage.Workdir = t.TempDir()
	cfg.Index.TreeDegree = 4
	return cfg
}

func open(t *testing.T, cfg *internal.ColdbConfig) *Database {
	t.Helper()
	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	return db
}

func createT(t *testing.T, db *Database) {
	t.Helper()
	_, err := db.Exec(&ast.CreateTable{Name: "t", Columns: []ast.ColumnDef{
		{Name: "a", Type: record.ColInteger},
		{Name: "b", Type: record.ColString},
	}})
	require.NoError(t, err)
}

func insert(t *testing.T, db *Database, rows ...[]*ast.Constant) {
	t.Helper()
	_, err := db.Exec(&ast.Insert{Table: "t", Rows: rows})
	require.NoError(t, err)
}

func selectAll(t *testing.T, db *Database) [][]any {
	t.Helper()
	res, err := db.Exec(&ast.Query{Tables: []string{"t"}})
	require.NoError(t, err)
	return res.Rows
}

func TestDatabase_CommitSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	db := open(t, cfg)

	require.NoError(t, db.Begin())
	createT(t, db)
	insert(t, db, ast.Values(1, "x"), ast.Values(2, "y"))
	_, err := db.Exec(&ast.CreateIndex{Table: "t", Column: "a", Index: index.KindTree})
	require.NoError(t, err)
	require.NoError(t, db.Commit())
	require.NoError(t, db.Close())

	_, err = os.Stat(filepath.Join(cfg.Storage.Workdir, "tables", "t.tbl"))
	require.NoError(t, err)

	db = open(t, cfg)
	defer db.Close()
	require.Equal(t, [][]any{{int64(1), "x"}, {int64(2), "y"}}, selectAll(t, db))

	ix, err := db.Catalog().IndexOf("t", "a")
	require.NoError(t, err)
	require.Equal(t, index.KindTree, ix.Kind())

	// row ids continue after the durable counter
	res, err := db.Exec(&ast.Insert{Table: "t", Rows: [][]*ast.Constant{ast.Values(3, "z")}})
	require.NoError(t, err)
	require.Equal(t, []record.RowID{3}, res.RowIDs)
}

func TestDatabase_AbortRollsBack(t *testing.T) {
	cfg := testConfig(t)
	db := open(t, cfg)
	defer db.Close()

	createT(t, db)
	insert(t, db, ast.Values(1, "x"))
	require.False(t, db.HasActiveTransaction())

	require.NoError(t, db.Begin())
	require.True(t, db.HasActiveTransaction())
	insert(t, db, ast.Values(2, "y"))
	_, err := db.Exec(&ast.Update{Table: "t", Set: []ast.Assignment{{Column: "b", Value: ast.Lit("q")}}})
	require.NoError(t, err)
	require.Len(t, selectAll(t, db), 2)

	require.NoError(t, db.Abort())
	require.False(t, db.HasActiveTransaction())
	require.Equal(t, [][]any{{int64(1), "x"}}, selectAll(t, db))
}

func TestDatabase_AutoCommitFlushedOnClose(t *testing.T) {
	cfg := testConfig(t)
	db := open(t, cfg)
	createT(t, db)
	insert(t, db, ast.Values(1, "x"))
	require.NoError(t, db.Close())

	db = open(t, cfg)
	defer db.Close()
	require.Len(t, selectAll(t, db), 1)
}

func TestDatabase_PersistenceDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Persistence = false
	db := open(t, cfg)
	require.False(t, db.Persistence())

	createT(t, db)
	insert(t, db, ast.Values(1, "x"))
	require.NoError(t, db.Close())

	db = open(t, cfg)
	defer db.Close()
	_, err := db.Catalog().TableByName("t")
	require.ErrorIs(t, err, dberr.ErrNoSuchTable)
}

func TestDatabase_DeleteAll(t *testing.T) {
	cfg := testConfig(t)
	db := open(t, cfg)
	createT(t, db)
	insert(t, db, ast.Values(1, "x"))
	require.NoError(t, db.Begin())
	require.NoError(t, db.Commit())

	require.NoError(t, db.DeleteAll())
	require.Empty(t, db.Catalog().Tables())
	require.NoError(t, db.Close())

	db = open(t, cfg)
	defer db.Close()
	require.Empty(t, db.Catalog().Tables())
}

func TestDatabase_TransactionErrors(t *testing.T) {
	db := open(t, testConfig(t))

	require.ErrorIs(t, db.Commit(), dberr.ErrNoTransactionActive)
	require.ErrorIs(t, db.Abort(), dberr.ErrNoTransactionActive)
	require.NoError(t, db.Begin())
	require.ErrorIs(t, db.Begin(), dberr.ErrTransactionAlreadyActive)
	require.NoError(t, db.Abort())

	require.NoError(t, db.Close())
	require.ErrorIs(t, db.Close(), ErrDatabaseClosed)
	_, err := db.Exec(&ast.Query{Tables: []string{"t"}})
	require.ErrorIs(t, err, ErrDatabaseClosed)
	require.ErrorIs(t, db.Begin(), ErrDatabaseClosed)
}

func TestDatabase_AutoCommitDurableWithoutClose(t *testing.T) {
	cfg := testConfig(t)
	db := open(t, cfg)
	createT(t, db)
	insert(t, db, ast.Values(1, "x"))

	// no Close: the second handle sees only what reached disk
	crashed := open(t, cfg)
	require.Equal(t, [][]any{{int64(1), "x"}}, selectAll(t, crashed))
	require.NoError(t, crashed.Close())

	// a same-kind follower is committed once the run ends
	insert(t, db, ast.Values(2, "y"))
	_, err := db.Exec(&ast.Query{Tables: []string{"t"}})
	require.NoError(t, err)

	crashed = open(t, cfg)
	defer crashed.Close()
	require.Len(t, selectAll(t, crashed), 2)
}

func TestDatabase_DeleteWithHashIndexSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	db := open(t, cfg)

	require.NoError(t, db.Begin())
	createT(t, db)
	insert(t, db, ast.Values(1, "x"), ast.Values(2, "y"))
	_, err := db.Exec(&ast.CreateIndex{Table: "t", Column: "a", Index: index.KindHash})
	require.NoError(t, err)
	res, err := db.Exec(&ast.Delete{Table: "t", Where: ast.Eq(ast.Col("a"), ast.Lit("1"))})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.AffectedRows)
	require.NoError(t, db.Commit())
	require.NoError(t, db.Close())

	db = open(t, cfg)
	defer db.Close()
	require.Equal(t, [][]any{{int64(2), "y"}}, selectAll(t, db))

	res, err = db.Exec(&ast.Query{Tables: []string{"t"}, Where: ast.Eq(ast.Col("a"), ast.Lit("2"))})
	require.NoError(t, err)
	require.Equal(t, [][]any{{int64(2), "y"}}, res.Rows)
	require.Contains(t, res.Access[0], "IndexLookup")
}
