package colstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/index"
	"github.com/tuannm99/coldb/internal/record"
)

// newTestTable builds people(id INTEGER, name STRING, born DATE).
func newTestTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(1, "people", []record.Column{
		{Name: "id", Type: record.ColInteger},
		{Name: "name", Type: record.ColString},
		{Name: "born", Type: record.ColDate},
	})
	require.NoError(t, err)
	return tbl
}

func day(d int) time.Time { return time.Date(2000, 1, d, 0, 0, 0, 0, time.UTC) }

func TestTable_AddAndGetRows(t *testing.T) {
	tbl := newTestTable(t)
	ids, err := tbl.AddRows(nil, [][]any{
		{1, "ann", day(1)},
		{2, "bob", nil},
	})
	require.NoError(t, err)
	require.Equal(t, []record.RowID{1, 2}, ids)
	require.Equal(t, 2, tbl.RowCount())

	rows := tbl.GetRows().Collect()
	require.Len(t, rows, 2)
	require.Equal(t, []any{int64(1), "ann", day(1)}, rows[0].Values)
	require.Equal(t, []any{int64(2), "bob", nil}, rows[1].Values)

	// listed columns only; the rest become NULL
	ids, err = tbl.AddRows([]record.ColumnID{2}, [][]any{{"cat"}})
	require.NoError(t, err)
	require.Equal(t, []record.RowID{3}, ids)
	v, err := tbl.Value(3, 1)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestTable_AddRowsValidatesBeforeWriting(t *testing.T) {
	tbl := newTestTable(t)
	_, err := tbl.AddRows(nil, [][]any{
		{1, "ok", day(1)},
		{"not-an-int", "bad", day(2)},
	})
	require.ErrorIs(t, err, dberr.ErrInvalidValue)
	require.Equal(t, 0, tbl.RowCount())
	require.Equal(t, record.RowID(1), tbl.NextRowID())

	_, err = tbl.AddRows(nil, [][]any{{1, "short"}})
	require.ErrorIs(t, err, dberr.ErrInvalidValue)

	_, err = tbl.AddRows([]record.ColumnID{9}, [][]any{{1}})
	require.ErrorIs(t, err, dberr.ErrNoSuchColumn)
}

func TestTable_GetRowsSelection(t *testing.T) {
	tbl := newTestTable(t)
	_, err := tbl.AddRows(nil, [][]any{{1, "a", nil}, {2, "b", nil}, {3, "c", nil}})
	require.NoError(t, err)

	rows := tbl.GetRows(3, 1, 42, 3).Collect()
	require.Len(t, rows, 2)
	require.Equal(t, record.RowID(1), rows[0].ID)
	require.Equal(t, record.RowID(3), rows[1].ID)

	// each call is a fresh pass
	c := tbl.GetRows()
	_, ok := c.Next()
	require.True(t, ok)
	require.NoError(t, c.Close())
	_, ok = c.Next()
	require.False(t, ok)
	require.Len(t, tbl.GetRows().Collect(), 3)
}

func TestTable_DeleteKeepsRowIDsStable(t *testing.T) {
	tbl := newTestTable(t)
	ids, err := tbl.AddRows(nil, [][]any{{10, "a", nil}, {20, "b", nil}, {30, "c", nil}, {40, "d", nil}})
	require.NoError(t, err)
	_, err = tbl.CreateIndex(1, index.KindHash)
	require.NoError(t, err)

	n, err := tbl.DeleteRows([]record.RowID{ids[1], ids[1]})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 3, tbl.RowCount())

	// later ids still resolve to their own rows
	v, err := tbl.Value(ids[3], 1)
	require.NoError(t, err)
	require.Equal(t, int64(40), v)
	v, err = tbl.Value(ids[2], 2)
	require.NoError(t, err)
	require.Equal(t, "c", v)

	_, err = tbl.Value(ids[1], 1)
	require.ErrorIs(t, err, dberr.ErrNoSuchRow)

	ix, ok := tbl.Index(1)
	require.True(t, ok)
	c, err := ix.PointQuery(int64(20))
	require.NoError(t, err)
	require.Empty(t, record.Drain(c))
	c, err = ix.PointQuery(int64(40))
	require.NoError(t, err)
	require.Equal(t, []record.RowID{ids[3]}, record.Drain(c))

	// deleting twice is rejected and changes nothing
	_, err = tbl.DeleteRows([]record.RowID{ids[0], ids[1]})
	require.ErrorIs(t, err, dberr.ErrNoSuchRow)
	require.Equal(t, 3, tbl.RowCount())

	// new rows never reuse ids
	fresh, err := tbl.AddRows(nil, [][]any{{50, "e", nil}})
	require.NoError(t, err)
	require.Equal(t, record.RowID(5), fresh[0])
}

func TestTable_UpdateMovesIndexKeys(t *testing.T) {
	for _, kind := range []index.Kind{index.KindHash, index.KindTree, index.KindBitmap} {
		t.Run(kind.String(), func(t *testing.T) {
			tbl := newTestTable(t)
			ids, err := tbl.AddRows(nil, [][]any{{1, "a", nil}, {2, "b", nil}})
			require.NoError(t, err)
			ix, err := tbl.CreateIndex(2, kind)
			require.NoError(t, err)

			n, err := tbl.UpdateRows(ids[:1], []record.ColumnID{2}, [][]any{{"z"}})
			require.NoError(t, err)
			require.Equal(t, 1, n)

			c, err := ix.PointQuery("a")
			require.NoError(t, err)
			require.Empty(t, record.Drain(c))
			c, err = ix.PointQuery("z")
			require.NoError(t, err)
			require.Equal(t, []record.RowID{ids[0]}, record.Drain(c))

			// NULL leaves the index
			_, err = tbl.UpdateRows(ids[1:], []record.ColumnID{2}, [][]any{{nil}})
			require.NoError(t, err)
			require.Equal(t, 1, ix.Len())
		})
	}
}

func TestTable_UpdateValidation(t *testing.T) {
	tbl := newTestTable(t)
	ids, err := tbl.AddRows(nil, [][]any{{1, "a", nil}, {2, "b", nil}})
	require.NoError(t, err)

	_, err = tbl.UpdateRows([]record.RowID{ids[0], 99}, []record.ColumnID{1}, [][]any{{5}})
	require.ErrorIs(t, err, dberr.ErrNoSuchRow)
	v, _ := tbl.Value(ids[0], 1)
	require.Equal(t, int64(1), v)

	_, err = tbl.UpdateRows(ids, []record.ColumnID{1}, [][]any{{5}, {"x"}})
	require.ErrorIs(t, err, dberr.ErrInvalidValue)
	v, _ = tbl.Value(ids[0], 1)
	require.Equal(t, int64(1), v)

	n, err := tbl.UpdateRows(ids, []record.ColumnID{1, 2}, [][]any{{7, "p"}, {8, "q"}})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	rows := tbl.GetRows().Collect()
	require.Equal(t, []any{int64(8), "q", nil}, rows[1].Values)
}

func TestTable_ColumnDDL(t *testing.T) {
	tbl := newTestTable(t)
	_, err := tbl.AddRows(nil, [][]any{{1, "a", nil}})
	require.NoError(t, err)

	id, err := tbl.CreateColumn("score", record.ColDouble)
	require.NoError(t, err)
	require.Equal(t, record.ColumnID(4), id)
	v, err := tbl.Value(1, id)
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = tbl.CreateColumn("name", record.ColString)
	require.ErrorIs(t, err, dberr.ErrColumnAlreadyExists)
	_, err = tbl.CreateColumn("bad name", record.ColString)
	require.ErrorIs(t, err, dberr.ErrInvalidName)

	require.ErrorIs(t, tbl.RenameColumn(id, "name"), dberr.ErrColumnAlreadyExists)
	require.NoError(t, tbl.RenameColumn(id, "points"))
	c, err := tbl.ColumnByName("points")
	require.NoError(t, err)
	require.Equal(t, id, c.ID())

	_, err = tbl.CreateIndex(id, index.KindTree)
	require.NoError(t, err)
	_, err = tbl.CreateIndex(id, index.KindHash)
	require.ErrorIs(t, err, dberr.ErrIndexAlreadyExists)

	require.NoError(t, tbl.DropColumn(id))
	_, ok := tbl.Index(id)
	require.False(t, ok)
	require.ErrorIs(t, tbl.DropColumn(id), dberr.ErrNoSuchColumn)
	require.ErrorIs(t, tbl.DropIndex(id), dberr.ErrNoSuchIndex)

	// column ids are not reused
	next, err := tbl.CreateColumn("extra", record.ColBoolean)
	require.NoError(t, err)
	require.Equal(t, record.ColumnID(5), next)
}

func TestTable_ChangeHook(t *testing.T) {
	tbl := newTestTable(t)
	calls := 0
	tbl.SetChangeHook(func(*Table) { calls++ })

	_, err := tbl.AddRows(nil, [][]any{{1, "a", nil}})
	require.NoError(t, err)
	_, err = tbl.AddRows(nil, [][]any{{"bad", "a", nil}})
	require.Error(t, err)
	_, err = tbl.CreateIndex(1, index.KindHash)
	require.NoError(t, err)
	_, err = tbl.DeleteRows([]record.RowID{1})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestImage_RoundTrip(t *testing.T) {
	tbl := newTestTable(t)
	_, err := tbl.AddRows(nil, [][]any{{1, "a", day(3)}, {2, nil, nil}, {3, "c", day(5)}})
	require.NoError(t, err)
	_, err = tbl.DeleteRows([]record.RowID{2})
	require.NoError(t, err)
	_, err = tbl.CreateIndex(3, index.KindTree)
	require.NoError(t, err)

	back, err := FromImage(tbl.Image())
	require.NoError(t, err)
	require.Equal(t, tbl.Name(), back.Name())
	require.Equal(t, tbl.RowIDs(), back.RowIDs())
	require.Equal(t, tbl.NextRowID(), back.NextRowID())
	require.Equal(t, tbl.GetRows().Collect(), back.GetRows().Collect())

	ix, ok := back.Index(3)
	require.True(t, ok)
	c, err := ix.RangeQuery(index.MinimumSearchKey, index.MaximumSearchKey, true, true)
	require.NoError(t, err)
	require.Equal(t, []record.RowID{1, 3}, record.Drain(c))
}

func TestFromImage_RejectsInconsistentImage(t *testing.T) {
	img := newTestTable(t).Image()
	img.RowIDs = []record.RowID{1}
	_, err := FromImage(img)
	require.ErrorIs(t, err, dberr.ErrCorruptImage)
}
