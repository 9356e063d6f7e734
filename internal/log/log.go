// Package log provides preconfigured loggers for the core's embedder.
package log

//go:generate errtrace -w .

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/golang-cz/devslog"
	conslog "github.com/phsym/console-slog"
	slogfmt "github.com/samber/slog-formatter"

	"github.com/quietloop/h2core/connstate"
	"github.com/quietloop/h2core/frame"
)

var newHandler = slogfmt.NewFormatterHandler(
	slogfmt.ErrorFormatter("error"),
	slogfmt.FormatByType(func(s connstate.State) slog.Value {
		return slog.StringValue(s.String())
	}),
	slogfmt.FormatByType(func(in connstate.Input) slog.Value {
		return slog.StringValue(in.String())
	}),
	slogfmt.FormatByType(func(d frame.Descriptor) slog.Value {
		return slog.GroupValue(
			slog.String("kind", d.Kind.String()),
			slog.String("direction", d.Direction.String()),
			slog.Uint64("stream_id", uint64(d.StreamID)),
		)
	}),
)

var console = slog.New(newHandler(
	conslog.NewHandler(os.Stdout, &conslog.HandlerOptions{
		AddSource:  true,
		Level:      slog.LevelDebug,
		TimeFormat: time.RFC3339Nano,
	}),
))

// Console returns the logger configured for human-readable console output.
func Console() *slog.Logger { return console }

var develop = slog.New(newHandler(
	devslog.NewHandler(os.Stdout, &devslog.Options{
		HandlerOptions: &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelDebug,
		},
		SortKeys:   true,
		TimeFormat: time.RFC3339Nano,
	}),
))

// Develop returns the logger configured for verbose, source-annotated
// output useful while developing an embedder against the core.
func Develop() *slog.Logger { return develop }

// discardHandler is a slog.Handler with no domain-specific behavior to
// adapt: it drops every record unconditionally.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool { return false }

func (discardHandler) Handle(context.Context, slog.Record) error { return nil }

func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h discardHandler) WithGroup(string) slog.Handler { return h }

var noop = slog.New(discardHandler{})

// Noop returns a logger that writes nothing. It is the default for any
// h2conn.Conn constructed without an explicit WithLogger option.
func Noop() *slog.Logger { return noop }

var _default atomic.Pointer[slog.Logger]

// Default returns the package-wide default logger. It starts out set to
// [Noop].
func Default() *slog.Logger { return _default.Load() }

// SetDefault overwrites the package-wide default logger. A nil l resets
// it to [Noop].
func SetDefault(l *slog.Logger) {
	if l == nil {
		l = noop
	}
	_default.Store(l)
}

func init() {
	_default.Store(noop)
}

type ctxKey struct{}

// ContextWithLogger returns a new context carrying logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx by [ContextWithLogger], or
// [Default] if none was stored.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return Default()
}
