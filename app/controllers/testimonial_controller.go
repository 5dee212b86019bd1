package controllers

import (
	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/ctx"
)

type TestimonialController struct {
	testimonials *services.TestimonialService
}

func NewTestimonialController(testimonials *services.TestimonialService) *TestimonialController {
	return &TestimonialController{testimonials: testimonials}
}

// Index is the public list of approved testimonials.
func (h *TestimonialController) Index(c *ctx.Context) {
	list, err := h.testimonials.ListApproved(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(list)
}

func (h *TestimonialController) Store(c *ctx.Context) {
	var in services.TestimonialInput
	if !c.BindJSON(&in) {
		return
	}
	t, err := h.testimonials.Create(c.Context(), c.Principal().UserID, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(t)
}

func (h *TestimonialController) All(c *ctx.Context) {
	list, err := h.testimonials.ListAll(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(list)
}

func (h *TestimonialController) Approve(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	t, err := h.testimonials.Approve(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(t)
}

func (h *TestimonialController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := h.testimonials.Delete(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Testimonial removed")
}
