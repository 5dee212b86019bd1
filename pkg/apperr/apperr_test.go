package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/giftkart/pkg/apperr"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.Unauthorized("no"), http.StatusUnauthorized},
		{apperr.Forbidden("no"), http.StatusForbidden},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.Conflict("dup"), http.StatusConflict},
		{apperr.InsufficientStock("short"), http.StatusBadRequest},
		{apperr.InvalidState("late"), http.StatusConflict},
		{apperr.UnsupportedMediaType("gif"), http.StatusUnsupportedMediaType},
		{apperr.PayloadTooLarge("big"), http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, apperr.Status(tc.err), tc.err.Error())
	}
}

func TestWrappedErrorsKeepKind(t *testing.T) {
	err := fmt.Errorf("placing order: %w", apperr.InsufficientStock("Insufficient stock"))

	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	assert.True(t, errors.Is(err, apperr.ErrInsufficientStock))
	assert.False(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, "Insufficient stock", apperr.PublicMessage(err))
}

func TestInternalIsOpaque(t *testing.T) {
	err := apperr.Internal(errors.New("dial tcp: refused"), "db down")

	assert.Equal(t, "Server error", apperr.PublicMessage(err))
	assert.Equal(t, "Server error", apperr.PublicMessage(errors.New("raw")))
	assert.ErrorContains(t, err, "dial tcp")
}
