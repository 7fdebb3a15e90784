package coldb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/coldb"
)

func TestFacade_QueryAndErrors(t *testing.T) {
	cfg := coldb.DefaultConfig()
	cfg.Storage.Workdir = t.TempDir()

	db, err := coldb.Open(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(&coldb.CreateTable{Name: "t", Columns: []coldb.ColumnDef{
		{Name: "a", Type: coldb.Integer},
		{Name: "b", Type: coldb.String},
	}})
	require.NoError(t, err)
	_, err = db.Exec(&coldb.CreateIndex{Table: "t", Column: "a", Index: coldb.Hash})
	require.NoError(t, err)
	_, err = db.Exec(&coldb.Insert{Table: "t", Rows: [][]*coldb.Constant{
		coldb.Values(1, "x"),
		coldb.Values(2, "y"),
	}})
	require.NoError(t, err)

	res, err := db.Exec(&coldb.Query{Tables: []string{"t"}, Columns: []string{"b"}, Where: coldb.Eq(coldb.Col("a"), coldb.Lit("2"))})
	require.NoError(t, err)
	require.Equal(t, [][]any{{"y"}}, res.Rows)

	_, err = db.Exec(&coldb.Query{Tables: []string{"nope"}})
	var qe *coldb.QueryExecutionError
	require.True(t, errors.As(err, &qe))
	require.ErrorIs(t, err, coldb.ErrNoSuchTable)
	require.Equal(t, "not_found", coldb.KindOf(err).String())
}
