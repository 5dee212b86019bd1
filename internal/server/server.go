// Package server runs the HTTP and gRPC listeners until the context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shashiranjanraj/giftkart/pkg/grpc"
	"github.com/shashiranjanraj/giftkart/pkg/logger"
)

// ShutdownTimeout bounds how long in-flight requests get after a signal.
const ShutdownTimeout = 10 * time.Second

// Options configures Start.
type Options struct {
	Addr     string
	GRPCPort string // empty disables gRPC
	Probe    grpc.Prober
}

// Start serves handler on opts.Addr until ctx is cancelled, then drains
// in-flight requests. The gRPC health server runs alongside.
func Start(ctx context.Context, handler http.Handler, opts Options) error {
	lis, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", opts.Addr, err)
	}
	return Serve(ctx, lis, handler, opts)
}

// Serve is Start on an existing listener.
func Serve(ctx context.Context, lis net.Listener, handler http.Handler, opts Options) error {
	var rpc *grpc.Server
	if opts.GRPCPort != "" {
		var err error
		if rpc, err = grpc.Start(ctx, opts.GRPCPort, opts.Probe); err != nil {
			lis.Close()
			return err
		}
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "addr", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		rpc.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("HTTP server shutting down", "timeout", ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	rpc.Stop()
	if err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
