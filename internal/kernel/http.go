// Package kernel wires the services, controllers and global middleware into
// the storefront's HTTP handler.
package kernel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/controllers"
	catalogql "github.com/shashiranjanraj/giftkart/app/graphql"
	"github.com/shashiranjanraj/giftkart/app/listeners"
	"github.com/shashiranjanraj/giftkart/app/payment"
	"github.com/shashiranjanraj/giftkart/app/repositories"
	"github.com/shashiranjanraj/giftkart/app/routes"
	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/cache"
	"github.com/shashiranjanraj/giftkart/pkg/event"
	gql "github.com/shashiranjanraj/giftkart/pkg/graphql"
	"github.com/shashiranjanraj/giftkart/pkg/metrics"
	"github.com/shashiranjanraj/giftkart/pkg/middleware"
	"github.com/shashiranjanraj/giftkart/pkg/queue"
	"github.com/shashiranjanraj/giftkart/pkg/reqid"
	"github.com/shashiranjanraj/giftkart/pkg/router"
	"github.com/shashiranjanraj/giftkart/pkg/storage"
	"github.com/shashiranjanraj/giftkart/pkg/ws"
)

// Deps is the connected infrastructure. Cache, Queue and Hub may be nil.
type Deps struct {
	DB             *gorm.DB
	Cache          *cache.Store
	Disk           storage.Disk
	Queue          *queue.Manager
	Hub            *ws.Hub
	Payment        payment.Settings
	UploadMaxBytes int64
	CORS           middleware.CORSOptions
	RateLimit      int
}

// Kernel holds the wired services.
type Kernel struct {
	deps Deps

	Events       *event.Dispatcher
	Orders       *repositories.OrderRepository
	Auth         *services.AuthService
	Users        *services.UserService
	Catalog      *services.GiftCardService
	Proofs       *services.ProofStore
	OrderService *services.OrderService
	Testimonials *services.TestimonialService
	Idempotency  *services.Idempotency
}

// New builds the services and subscribes the order listeners.
func New(d Deps) *Kernel {
	users := repositories.NewUserRepository(d.DB)
	catalog := services.NewGiftCardService(repositories.NewGiftCardRepository(d.DB), d.Cache)
	proofs := services.NewProofStore(d.Disk, d.UploadMaxBytes)
	events := event.New()

	var feed listeners.Publisher
	if d.Hub != nil {
		feed = d.Hub
	}
	listeners.Register(events, feed, d.Queue)

	return &Kernel{
		deps:         d,
		Events:       events,
		Orders:       repositories.NewOrderRepository(d.DB),
		Auth:         services.NewAuthService(users),
		Users:        services.NewUserService(users),
		Catalog:      catalog,
		Proofs:       proofs,
		OrderService: services.NewOrderService(d.DB, catalog, proofs, events, d.Payment),
		Testimonials: services.NewTestimonialService(repositories.NewTestimonialRepository(d.DB)),
		Idempotency:  services.NewIdempotency(d.Cache),
	}
}

// Routes mounts the route table on a bare router.
func (k *Kernel) Routes(r *router.Router) error {
	schema, err := catalogql.NewSchema(k.Catalog)
	if err != nil {
		return fmt.Errorf("kernel: graphql schema: %w", err)
	}

	routes.RegisterAPI(r, routes.Handlers{
		Auth:         controllers.NewAuthController(k.Auth, k.Users),
		GiftCards:    controllers.NewGiftCardController(k.Catalog),
		Orders:       controllers.NewOrderController(k.OrderService, k.Proofs, k.Idempotency),
		Testimonials: controllers.NewTestimonialController(k.Testimonials),
		Feed:         controllers.NewFeedController(k.Auth, k.deps.Hub),
		GraphQL:      gql.Handler(schema),
		Principal:    k.Auth.Principal,
		Health:       k.Ping,
	})
	return nil
}

// Handler builds the full HTTP handler. The rate limiter sweeps its buckets
// until ctx ends.
func (k *Kernel) Handler(ctx context.Context) (http.Handler, error) {
	r := router.New()

	// Global middleware, outermost first.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(k.deps.CORS))
	if k.deps.RateLimit > 0 {
		r.Use(middleware.RateLimit(ctx, k.deps.RateLimit, time.Minute))
	}

	r.HandleFunc("/metrics", metrics.Handler())

	if err := k.Routes(r); err != nil {
		return nil, err
	}
	return r.Handler(), nil
}

// Ping checks the database, for /healthz and the gRPC health probe.
func (k *Kernel) Ping(ctx context.Context) error {
	if k.deps.DB == nil {
		return fmt.Errorf("database: not connected")
	}
	sqlDB, err := k.deps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
