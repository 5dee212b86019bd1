package grpc_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	appgrpc "github.com/shashiranjanraj/giftkart/pkg/grpc"
)

func check(t *testing.T, addr string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: appgrpc.ServiceName})
	require.NoError(t, err)
	return resp.Status
}

func TestHealthFollowsProbe(t *testing.T) {
	var failing atomic.Bool
	probe := func(context.Context) error {
		if failing.Load() {
			return errors.New("db down")
		}
		return nil
	}

	srv, err := appgrpc.Start(context.Background(), "0", probe)
	require.NoError(t, err)
	defer srv.Stop()

	addr := srv.Addr().String()
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(t, addr))

	failing.Store(true)
	srv.Probe(context.Background(), probe)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, addr))
}
