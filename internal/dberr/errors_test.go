package dberr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf_WrappedSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("table %q: %w", "t", ErrNoSuchTable), KindNotFound},
		{fmt.Errorf("x: %w", ErrColumnAlreadyExists), KindConflict},
		{ErrNoTransactionActive, KindStateConflict},
		{fmt.Errorf("parse: %w", ErrInvalidValue), KindInputInvalid},
		{ErrRangeQueryNotSupported, KindCapabilityMissing},
		{os.ErrPermission, KindUnknown},
		{nil, KindUnknown},
	}
	for _, c := range cases {
		require.Equal(t, c.want, KindOf(c.err), "err=%v", c.err)
	}
}

func TestExecution_WrapsOnce(t *testing.T) {
	require.NoError(t, Execution("insert", nil))

	cause := fmt.Errorf("column %q: %w", "a", ErrNoSuchColumn)
	err := Execution("insert", cause)

	var qe *QueryExecutionError
	require.True(t, errors.As(err, &qe))
	require.Equal(t, "insert", qe.Statement)
	require.ErrorIs(t, err, ErrNoSuchColumn)
	require.Equal(t, KindNotFound, qe.Kind())

	again := Execution("query", err)
	require.Same(t, err, again)
}
