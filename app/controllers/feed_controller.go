package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/auth"
	"github.com/shashiranjanraj/giftkart/pkg/middleware"
	"github.com/shashiranjanraj/giftkart/pkg/response"
	"github.com/shashiranjanraj/giftkart/pkg/ws"
)

// FeedController upgrades admins to the live order feed. Browsers cannot
// set headers on a WebSocket handshake, so ?token= is accepted as well as
// the Authorization header.
type FeedController struct {
	auth *services.AuthService
	hub  *ws.Hub
}

func NewFeedController(authSvc *services.AuthService, hub *ws.Hub) *FeedController {
	return &FeedController{auth: authSvc, hub: hub}
}

func (h *FeedController) Orders(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.BearerToken(r)
	}
	if token == "" {
		response.Error(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}
	p, err := h.auth.Principal(r.Context(), claims.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			response.Error(w, http.StatusUnauthorized, "Not authorized, user not found")
			return
		}
		response.Fail(w, r, err)
		return
	}
	if !p.IsAdmin() {
		response.Error(w, http.StatusForbidden, "Not authorized as an admin")
		return
	}
	h.hub.Upgrade(w, r)
}
