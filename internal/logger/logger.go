package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"
	"go.opentelemetry.io/otel/trace"
)

// Default log level if not specified or invalid.
const defaultLevel = slog.LevelInfo

// parseLogLevel converts common log level strings (case-insensitive) to slog.Level values.
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return defaultLevel
	}
}

// defaultLogger implements the public vclog.Logger interface on top of slog.
type defaultLogger struct {
	*slog.Logger
}

var _ vclog.Logger = (*defaultLogger)(nil)

// NewLogger creates a Logger configured with the specified level, output
// format ("text" or "json") and writer (defaults to os.Stderr).
func NewLogger(levelStr string, formatStr string, writer io.Writer) vclog.Logger {
	if writer == nil {
		writer = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       parseLogLevel(levelStr),
		ReplaceAttr: replaceLevelAttribute,
	}

	var baseHandler slog.Handler
	if strings.EqualFold(formatStr, "json") {
		baseHandler = slog.NewJSONHandler(writer, opts)
	} else {
		baseHandler = slog.NewTextHandler(writer, opts)
	}

	return &defaultLogger{Logger: slog.New(NewOtelHandler(baseHandler))}
}

// NewDefaultLogger provides a text logger writing to Stderr.
func NewDefaultLogger(levelStr string) vclog.Logger {
	return NewLogger(levelStr, "text", os.Stderr)
}

// NewDiscardLogger returns a logger that drops everything. Intended for tests
// and for library callers that do not want core warnings.
func NewDiscardLogger() vclog.Logger {
	return NewLogger("error", "text", io.Discard)
}

var levelStringMap = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARN",
	slog.LevelError: "ERROR",
}

// replaceLevelAttribute renders the level attribute as an uppercase string.
func replaceLevelAttribute(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	levelStr, exists := levelStringMap[level]
	if !exists {
		levelStr = level.String()
	}
	a.Value = slog.StringValue(levelStr)
	return a
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelDebug) {
		l.Logger.Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...))
	}
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelInfo) {
		l.Logger.Log(context.Background(), slog.LevelInfo, fmt.Sprintf(format, args...))
	}
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelWarn) {
		l.Logger.Log(context.Background(), slog.LevelWarn, fmt.Sprintf(format, args...))
	}
}

// Errorf logs at ERROR level. When the last argument is a LoadError or a
// StorageError its fields are attached as structured attributes.
func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	if !l.Logger.Enabled(context.Background(), slog.LevelError) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.Logger.Log(context.Background(), slog.LevelError, msg, errorAttrs(args)...)
}

// errorAttrs extracts structured attributes from a trailing error argument.
func errorAttrs(args []interface{}) []any {
	if len(args) == 0 {
		return nil
	}
	err, ok := args[len(args)-1].(error)
	if !ok {
		return nil
	}

	var loadErr *vcerrors.LoadError
	var storageErr *vcerrors.StorageError
	switch {
	case errors.As(err, &loadErr):
		attrs := []any{
			slog.String("error_type", "LoadError"),
			slog.String("nationality", loadErr.Nationality),
		}
		if loadErr.Cause != nil {
			attrs = append(attrs, slog.String("error", loadErr.Cause.Error()))
		}
		return attrs
	case errors.As(err, &storageErr):
		attrs := []any{
			slog.String("error_type", "StorageError"),
			slog.String("op", storageErr.Op),
		}
		if storageErr.Key != "" {
			attrs = append(attrs, slog.String("key", storageErr.Key))
		}
		if storageErr.Cause != nil {
			attrs = append(attrs, slog.String("error", storageErr.Cause.Error()))
		}
		return attrs
	default:
		return []any{slog.String("error", err.Error())}
	}
}

func (l *defaultLogger) Log(level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(context.Background(), level, msg, args...)
}

// LogCtx logs with ctx so the OtelHandler can attach trace/span IDs.
func (l *defaultLogger) LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(ctx, level, msg, args...)
}

func (l *defaultLogger) With(args ...interface{}) vclog.Logger {
	return &defaultLogger{Logger: l.Logger.With(args...)}
}

func (l *defaultLogger) IsEnabled(level slog.Level) bool {
	return l.Logger.Enabled(context.Background(), level)
}

// --- OtelHandler for Trace/Span ID Injection ---

// OtelHandler is a slog.Handler middleware that injects OpenTelemetry
// trace_id and span_id attributes when the logging context carries a valid span.
type OtelHandler struct {
	next slog.Handler
}

// NewOtelHandler creates a new OtelHandler wrapping the provided handler.
func NewOtelHandler(next slog.Handler) *OtelHandler {
	return &OtelHandler{next: next}
}

func (h *OtelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *OtelHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, record)
}

func (h *OtelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewOtelHandler(h.next.WithAttrs(attrs))
}

func (h *OtelHandler) WithGroup(name string) slog.Handler {
	return NewOtelHandler(h.next.WithGroup(name))
}
