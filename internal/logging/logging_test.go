package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, l)

	l, err = ParseLevel("WARN")
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, l)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(&buf, "info", "json", "")
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("hidden")
	logger.Info("txn.commit.done", "tables", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "txn.commit.done", rec["msg"])
	require.Equal(t, float64(2), rec["tables"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(&buf, "debug", "text", "")
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("catalog.table.created", "table", "t")
	require.Contains(t, buf.String(), "msg=catalog.table.created")
	require.Contains(t, buf.String(), "table=t")
}

func TestNew_RejectsBadFormat(t *testing.T) {
	_, _, err := New(&bytes.Buffer{}, "info", "xml", "")
	require.Error(t, err)
}

func TestFanout(t *testing.T) {
	var a, b bytes.Buffer
	f := &fanout{handlers: []slog.Handler{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	require.True(t, f.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(f).With("tx", "abc")
	logger.Info("only.first")
	logger.Warn("both")

	require.Contains(t, a.String(), "only.first")
	require.Contains(t, a.String(), "tx=abc")
	require.NotContains(t, b.String(), "only.first")
	require.Contains(t, b.String(), "both")
}
