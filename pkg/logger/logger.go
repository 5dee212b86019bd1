// Package logger provides the process-wide structured logger built on log/slog.
//
// Handlers log through the request-scoped logger so every line carries the
// request id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order placed", "order_id", order.ID)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shashiranjanraj/giftkart/config"
)

var L *slog.Logger

func init() {
	L = slog.New(consoleHandler(os.Stdout))
	slog.SetDefault(L)
}

func level() slog.Level {
	switch strings.ToLower(config.Get("LOG_LEVEL", "")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if isProduction() {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func isProduction() bool {
	env := config.AppEnv()
	return env == "production" || env == "prod"
}

func consoleHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: level()}
	if isProduction() {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Setup rebuilds the global logger after config.Load and attaches the
// MongoDB sink when LOG_MONGO_URI is set. The returned func flushes and
// closes the sink; it is never nil.
func Setup() func() {
	console := consoleHandler(os.Stdout)

	uri := config.Get("LOG_MONGO_URI", "")
	if uri == "" {
		L = slog.New(console)
		slog.SetDefault(L)
		return func() {}
	}

	sink, err := NewMongoHandler(uri, config.Get("LOG_MONGO_DB", "giftkart"), config.Get("LOG_MONGO_COLLECTION", "logs"))
	if err != nil {
		L = slog.New(console)
		slog.SetDefault(L)
		L.Warn("logger: mongo sink disabled", "error", err)
		return func() {}
	}

	L = slog.New(NewMultiHandler(console, sink))
	slog.SetDefault(L)
	return sink.Close
}

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored by the HTTP logger
// middleware, or the base logger when none is present.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a *slog.Logger (pre-tagged with request_id) into ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
