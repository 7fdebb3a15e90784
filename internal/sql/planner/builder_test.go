package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/index"
	"github.com/tuannm99/coldb/internal/record"
	"github.com/tuannm99/coldb/internal/sql/ast"
)

type fakeTable struct {
	indexes map[record.ColumnID]index.Index
}

func (f *fakeTable) Name() string { return "t" }
func (f *fakeTable) Index(col record.ColumnID) (index.Index, bool) {
	ix, ok := f.indexes[col]
	return ix, ok
}

func newFake(t *testing.T) *fakeTable {
	t.Helper()
	hash, err := index.New(index.KindHash, 1, record.ColInteger)
	require.NoError(t, err)
	tree, err := index.New(index.KindTree, 2, record.ColInteger)
	require.NoError(t, err)
	return &fakeTable{indexes: map[record.ColumnID]index.Index{1: hash, 2: tree}}
}

func TestBuildAccess_Equality(t *testing.T) {
	ft := newFake(t)

	p, err := BuildAccess(ft, 1, ast.OpEq, int64(3))
	require.NoError(t, err)
	lp, ok := p.(*IndexLookupPlan)
	require.True(t, ok)
	require.Equal(t, index.KindHash, lp.Index.Kind())

	p, err = BuildAccess(ft, 3, ast.OpEq, int64(3))
	require.NoError(t, err)
	require.IsType(t, &SeqScanPlan{}, p)
}

func TestBuildAccess_RangeNeedsOrderedIndex(t *testing.T) {
	ft := newFake(t)

	p, err := BuildAccess(ft, 1, ast.OpLt, int64(3))
	require.NoError(t, err)
	require.IsType(t, &SeqScanPlan{}, p)

	p, err = BuildAccess(ft, 2, ast.OpLt, int64(3))
	require.NoError(t, err)
	rp, ok := p.(*IndexRangePlan)
	require.True(t, ok)
	require.Equal(t, index.MinimumSearchKey, rp.Low)
	require.Equal(t, int64(3), rp.High)
	require.False(t, rp.IncludeHigh)

	p, err = BuildAccess(ft, 2, ast.OpGe, int64(3))
	require.NoError(t, err)
	rp = p.(*IndexRangePlan)
	require.Equal(t, int64(3), rp.Low)
	require.True(t, rp.IncludeLow)
	require.Equal(t, index.MaximumSearchKey, rp.High)
	require.Contains(t, rp.String(), "TREE")
}

func TestBuildAccess_Rejects(t *testing.T) {
	ft := newFake(t)
	_, err := BuildAccess(ft, 1, ast.OpAnd, int64(1))
	require.ErrorIs(t, err, dberr.ErrInvalidPredicate)
	_, err = BuildAccess(ft, 1, ast.OpEq, nil)
	require.ErrorIs(t, err, dberr.ErrInvalidKey)
}
