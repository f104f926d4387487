package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sagerock/google-drive-to-qdrant/internal/correlation"
)

type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(correlation.RunKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("run_id", id))
	}
	if name := correlation.GetCollection(ctx); name != "" {
		r.AddAttrs(slog.String("collection", name))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// Options controls how New builds the process logger.
type Options struct {
	Level  string
	Format string
	// File, when set, receives a copy of every record.
	File string
}

// New builds a context-aware logger writing to stdout and, optionally, a log file.
// The returned close func releases the file handle.
func New(opts Options) (*slog.Logger, func() error, error) {
	var w io.Writer = os.Stdout
	closeFn := func() error { return nil }

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) // #nosec G304 -- path comes from operator config
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(os.Stdout, f)
		closeFn = f.Close
	}

	return slog.New(NewContextHandler(newHandler(w, opts))), closeFn, nil
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "text") {
		return slog.NewTextHandler(w, ho)
	}
	return slog.NewJSONHandler(w, ho)
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
