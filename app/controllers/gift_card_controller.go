package controllers

import (
	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/ctx"
)

type GiftCardController struct {
	catalog *services.GiftCardService
}

func NewGiftCardController(catalog *services.GiftCardService) *GiftCardController {
	return &GiftCardController{catalog: catalog}
}

// Index lists the catalog: ?page=&limit=&brand=&search=
func (h *GiftCardController) Index(c *ctx.Context) {
	page, err := h.catalog.List(c.Context(), services.GiftCardQuery{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 0),
		Brand:  c.Query("brand"),
		Search: c.Query("search"),
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(page)
}

func (h *GiftCardController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	card, err := h.catalog.Get(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(card)
}

func (h *GiftCardController) Store(c *ctx.Context) {
	var in services.GiftCardInput
	if !c.BindJSON(&in) {
		return
	}
	card, err := h.catalog.Create(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(card)
}

func (h *GiftCardController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.GiftCardPatch
	if !c.BindJSON(&in) {
		return
	}
	card, err := h.catalog.Update(c.Context(), id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(card)
}

func (h *GiftCardController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Gift card removed")
}
