package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/auth"
)

func TestTestimonialModeration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ann := h.user(t, "ann@test.com", auth.RoleUser)

	_, err := h.testimonials.Create(ctx, ann.UserID, services.TestimonialInput{Rating: 5})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = h.testimonials.Create(ctx, ann.UserID, services.TestimonialInput{Rating: 6, Comment: "wow"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	first, err := h.testimonials.Create(ctx, ann.UserID, services.TestimonialInput{Rating: 5, Comment: "Fast delivery"})
	require.NoError(t, err)
	assert.False(t, first.IsApproved)
	_, err = h.testimonials.Create(ctx, ann.UserID, services.TestimonialInput{Rating: 2, Comment: "Slow"})
	require.NoError(t, err)

	public, err := h.testimonials.ListApproved(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)

	approved, err := h.testimonials.Approve(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	_, err = h.testimonials.Approve(ctx, 999)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	public, err = h.testimonials.ListApproved(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "U-ann", public[0].User.Name)

	raw, err := json.Marshal(public[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "ann@test.com", "author email must not leak")
	assert.NotContains(t, string(raw), "userId")

	all, err := h.testimonials.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, h.testimonials.Delete(ctx, first.ID))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(h.testimonials.Delete(ctx, first.ID)))
}
