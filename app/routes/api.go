// Package routes declares the HTTP route table.
package routes

import (
	"context"
	"net/http"

	"github.com/shashiranjanraj/giftkart/app/controllers"
	"github.com/shashiranjanraj/giftkart/pkg/ctx"
	"github.com/shashiranjanraj/giftkart/pkg/middleware"
	"github.com/shashiranjanraj/giftkart/pkg/rbac"
	"github.com/shashiranjanraj/giftkart/pkg/response"
	"github.com/shashiranjanraj/giftkart/pkg/router"
)

// Handlers is everything the route table mounts.
type Handlers struct {
	Auth         *controllers.AuthController
	GiftCards    *controllers.GiftCardController
	Orders       *controllers.OrderController
	Testimonials *controllers.TestimonialController
	Feed         *controllers.FeedController
	GraphQL      http.Handler
	Principal    middleware.PrincipalLoader
	Health       func(ctx context.Context) error
}

// RegisterAPI mounts every endpoint on r.
func RegisterAPI(r *router.Router, h Handlers) {
	protect := middleware.Authenticate(h.Principal)
	w := ctx.Wrap

	authG := r.Group("/auth")
	authG.Post("/register", "auth.register", w(h.Auth.Register))
	authG.Post("/login", "auth.login", w(h.Auth.Login))

	authP := r.Group("/auth", protect)
	authP.Get("/me", "auth.me", w(h.Auth.Me))
	authP.Post("/logout", "auth.logout", w(h.Auth.Logout))
	authP.Get("/users", "users.index", w(h.Auth.ListUsers), rbac.Admin)
	authP.Get("/users/{id}", "users.show", w(h.Auth.ShowUser))
	authP.Put("/users/{id}", "users.update", w(h.Auth.UpdateUser))
	authP.Delete("/users/{id}", "users.destroy", w(h.Auth.DeleteUser), rbac.Admin)

	cards := r.Group("/giftcards")
	cards.Get("", "giftcards.index", w(h.GiftCards.Index))
	cards.Get("/{id}", "giftcards.show", w(h.GiftCards.Show))
	cardsAdmin := r.Group("/giftcards", protect, rbac.Admin)
	cardsAdmin.Post("", "giftcards.store", w(h.GiftCards.Store))
	cardsAdmin.Put("/{id}", "giftcards.update", w(h.GiftCards.Update))
	cardsAdmin.Delete("/{id}", "giftcards.destroy", w(h.GiftCards.Destroy))

	orders := r.Group("/orders", protect)
	orders.Post("", "orders.place", w(h.Orders.Place))
	orders.Get("", "orders.index", w(h.Orders.Index), rbac.Admin)
	orders.Get("/me", "orders.mine", w(h.Orders.Mine))
	orders.Get("/export", "orders.export", w(h.Orders.Export), rbac.Admin)
	orders.Post("/simulate-checkout", "orders.checkout", w(h.Orders.Checkout))
	orders.Get("/{orderId}/proof", "orders.proof", w(h.Orders.Proof))
	orders.Post("/upload-proof/{orderId}", "orders.upload_proof", w(h.Orders.UploadProof))
	orders.Put("/verify-payment/{orderId}", "orders.verify", w(h.Orders.Verify), rbac.Admin)
	orders.Put("/{orderId}/cancel", "orders.cancel", w(h.Orders.Cancel))

	testimonials := r.Group("/testimonials")
	testimonials.Get("", "testimonials.index", w(h.Testimonials.Index))
	testimonialsP := r.Group("/testimonials", protect)
	testimonialsP.Post("", "testimonials.store", w(h.Testimonials.Store))
	testimonialsP.Get("/all", "testimonials.all", w(h.Testimonials.All), rbac.Admin)
	testimonialsP.Put("/{id}/approve", "testimonials.approve", w(h.Testimonials.Approve), rbac.Admin)
	testimonialsP.Delete("/{id}", "testimonials.destroy", w(h.Testimonials.Destroy), rbac.Admin)

	r.Get("/ws/orders", "ws.orders", h.Feed.Orders)
	if h.GraphQL != nil {
		r.Handle(http.MethodGet, "/graphql", "graphql.query", h.GraphQL)
		r.Handle(http.MethodPost, "/graphql", "graphql.exec", h.GraphQL)
	}
	r.Get("/healthz", "healthz", func(w http.ResponseWriter, req *http.Request) {
		if h.Health != nil {
			if err := h.Health(req.Context()); err != nil {
				response.Error(w, http.StatusServiceUnavailable, "Database unavailable")
				return
			}
		}
		response.Message(w, "ok")
	})
}
