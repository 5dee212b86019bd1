package controllers

import (
	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/ctx"
)

type AuthController struct {
	auth  *services.AuthService
	users *services.UserService
}

func NewAuthController(auth *services.AuthService, users *services.UserService) *AuthController {
	return &AuthController{auth: auth, users: users}
}

func (h *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	res, err := h.auth.Register(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(res)
}

func (h *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	res, err := h.auth.Login(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(res)
}

func (h *AuthController) Me(c *ctx.Context) {
	user, err := h.auth.Me(c.Context(), c.Principal().UserID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(user)
}

// Logout is stateless; the client drops its token.
func (h *AuthController) Logout(c *ctx.Context) {
	c.Message("Logged out successfully")
}

func (h *AuthController) ListUsers(c *ctx.Context) {
	page, err := h.users.List(c.Context(), c.QueryInt("page", 1), c.QueryInt("limit", 0))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(page)
}

func (h *AuthController) ShowUser(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Context(), c.Principal(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(user)
}

func (h *AuthController) UpdateUser(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.UpdateUserInput
	if !c.BindJSON(&in) {
		return
	}
	user, err := h.users.Update(c.Context(), c.Principal(), id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(user)
}

func (h *AuthController) DeleteUser(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := h.users.Delete(c.Context(), c.Principal(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("User removed")
}
