package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Key constants for structured log fields.
const (
	KeyComponent  = "component"
	KeyPID        = "pid"
	KeyRefresh    = "refresh"
	KeyDurationMs = "durationMs"
	KeyError      = "error"
)

type ctxAttrsKey struct{}

// handlerStep is one WithAttrs or WithGroup call, replayed in order onto
// whichever handler Init installs.
type handlerStep struct {
	group string
	attrs []slog.Attr
}

// deferredHandler lets package-level loggers created before Init pick up
// the configured handler once Init runs.
type deferredHandler struct {
	root  *atomic.Pointer[slog.Handler]
	steps []handlerStep
}

func (h *deferredHandler) resolve() slog.Handler {
	handler := *h.root.Load()
	for _, st := range h.steps {
		if st.group != "" {
			handler = handler.WithGroup(st.group)
		} else {
			handler = handler.WithAttrs(st.attrs)
		}
	}
	return handler
}

func (h *deferredHandler) with(st handlerStep) *deferredHandler {
	steps := make([]handlerStep, len(h.steps), len(h.steps)+1)
	copy(steps, h.steps)
	return &deferredHandler{root: h.root, steps: append(steps, st)}
}

func (h *deferredHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*h.root.Load()).Enabled(ctx, level)
}

func (h *deferredHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.resolve().Handle(ctx, record)
}

func (h *deferredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(handlerStep{attrs: attrs})
}

func (h *deferredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(handlerStep{group: name})
}

var (
	root          atomic.Pointer[slog.Handler]
	defaultLogger = slog.New(&deferredHandler{root: &root})
)

func init() {
	install(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(defaultLogger)
}

func install(h slog.Handler) {
	root.Store(&h)
}

// Init configures the global logger. Call once after config is loaded.
// format is "json" or "text" (default). level is debug, info (default),
// warn or error. A nil output logs to stderr; stdout carries command output.
func Init(format, level string, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	if strings.EqualFold(format, "json") {
		install(slog.NewJSONHandler(output, opts))
	} else {
		install(slog.NewTextHandler(output, opts))
	}
	slog.SetDefault(defaultLogger)
}

// L returns a logger tagged with the given component name.
func L(component string) *slog.Logger {
	return defaultLogger.With(slog.String(KeyComponent, component))
}

// ContextWith returns a copy of ctx carrying args in addition to any
// attributes already attached. Loggers obtained through FromContext
// include them.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(ctxAttrsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, ctxAttrsKey{}, merged)
}

// FromContext returns base extended with the attributes carried by ctx.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = defaultLogger
	}
	if args, ok := ctx.Value(ctxAttrsKey{}).([]any); ok && len(args) > 0 {
		return base.With(args...)
	}
	return base
}

func parseLevel(s string) slog.Level {
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
