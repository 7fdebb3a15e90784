// Package logging builds the process logger: a console handler and, when a
// Seq endpoint is configured, a Seq handler fed from the same records.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogseq "github.com/sokkalf/slog-seq"

	"github.com/tuannm99/coldb/internal"
)

// fanout forwards records to several handlers.
type fanout struct {
	handlers []slog.Handler
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &fanout{handlers: hs}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &fanout{handlers: hs}
}

// ParseLevel accepts debug, info, warn and error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// New builds a logger writing to w in the given format ("text" or "json").
// A non-empty seqURL adds a Seq handler; the returned func flushes it.
func New(w io.Writer, level, format, seqURL string) (*slog.Logger, func(), error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var console slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		console = slog.NewTextHandler(w, opts)
	case "json":
		console = slog.NewJSONHandler(w, opts)
	default:
		return nil, nil, fmt.Errorf("log format %q: want text or json", format)
	}

	if seqURL == "" {
		return slog.New(console), func() {}, nil
	}
	_, seq := slogseq.NewLogger(
		seqURL,
		slogseq.WithBatchSize(1),
		slogseq.WithFlushInterval(500*time.Millisecond),
		slogseq.WithHandlerOptions(&slog.HandlerOptions{Level: lvl}),
	)
	if seq == nil {
		return slog.New(console), func() {}, nil
	}
	logger := slog.New(&fanout{handlers: []slog.Handler{console, seq}})
	return logger, func() { seq.Close() }, nil
}

// Setup installs the configured logger as the slog default and returns its
// close func.
func Setup(cfg *internal.ColdbConfig) (func(), error) {
	logger, closeFn, err := New(os.Stdout, cfg.Log.Level, cfg.Log.Format, cfg.Log.SeqURL)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger.With("app", cfg.AppName))
	return closeFn, nil
}
