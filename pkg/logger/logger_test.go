package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithCtxFallsBackToBase(t *testing.T) {
	assert.Same(t, L, WithCtx(context.Background()))
}

func TestInjectLoggerIsReturnedByWithCtx(t *testing.T) {
	var buf bytes.Buffer
	reqLog := slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "abc123")

	ctx := InjectLogger(context.Background(), reqLog)
	WithCtx(ctx).Info("order placed", "order_id", 9)

	assert.Contains(t, buf.String(), "request_id=abc123")
	assert.Contains(t, buf.String(), "order_id=9")
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	log := slog.New(h).With("svc", "giftkart")

	log.Info("hello")
	log.Warn("careful")

	assert.Contains(t, a.String(), "hello")
	assert.Contains(t, a.String(), "careful")
	assert.NotContains(t, b.String(), "hello")
	assert.Contains(t, b.String(), "svc=giftkart")
}
