package tasks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/giftkart/app/tasks"
	"github.com/shashiranjanraj/giftkart/pkg/schedule"
)

type expirer struct {
	calls int
	err   error
}

func (e *expirer) ExpireOverdue(context.Context) (int, error) {
	e.calls++
	return 3, e.err
}

func TestRegisterAddsExpirySweep(t *testing.T) {
	s := schedule.New()
	e := &expirer{}
	tasks.Register(s, e)

	assert.Equal(t, []string{"orders:expire  [every 5m0s]"}, s.List())
	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, 1, e.calls)
}

func TestExpiryFailureSurfaces(t *testing.T) {
	s := schedule.New()
	tasks.Register(s, &expirer{err: errors.New("db gone")})

	err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders:expire")
}
