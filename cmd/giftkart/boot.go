package main

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/jobs"
	"github.com/shashiranjanraj/giftkart/app/payment"
	"github.com/shashiranjanraj/giftkart/config"
	"github.com/shashiranjanraj/giftkart/internal/kernel"
	"github.com/shashiranjanraj/giftkart/pkg/cache"
	"github.com/shashiranjanraj/giftkart/pkg/database"
	"github.com/shashiranjanraj/giftkart/pkg/logger"
	"github.com/shashiranjanraj/giftkart/pkg/mail"
	"github.com/shashiranjanraj/giftkart/pkg/middleware"
	"github.com/shashiranjanraj/giftkart/pkg/notification"
	"github.com/shashiranjanraj/giftkart/pkg/queue"
	"github.com/shashiranjanraj/giftkart/pkg/storage"
	"github.com/shashiranjanraj/giftkart/pkg/ws"
)

// runtime is the connected process: database, redis, storage, queue and
// the wired services.
type runtime struct {
	db     *gorm.DB
	cache  *cache.Store
	queue  *queue.Manager
	hub    *ws.Hub
	kernel *kernel.Kernel

	closeLog func()
}

// bootDB loads config and opens the database connection.
func bootDB() error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return database.Connect()
}

// boot connects everything a command needs. withHub creates the admin
// websocket hub; only serve needs one.
func boot(ctx context.Context, withHub bool) (*runtime, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	rt := &runtime{closeLog: logger.Setup()}

	if err := database.Connect(); err != nil {
		rt.close()
		return nil, err
	}
	rt.db = database.DB

	store, err := cache.Connect(ctx)
	if err != nil {
		logger.Warn("redis unavailable, running without cache and idempotency keys", "error", err)
	}
	rt.cache = store

	if err := storage.Connect(); err != nil {
		rt.close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	rt.queue = queue.New(queueDriver(store))
	rt.queue.UseDB(rt.db)

	if withHub {
		rt.hub = ws.NewHub(originAllowed(config.CORSOrigins()))
	}

	settings := paymentSettings()
	rt.kernel = kernel.New(kernel.Deps{
		DB:             rt.db,
		Cache:          store,
		Disk:           storage.Default(),
		Queue:          rt.queue,
		Hub:            rt.hub,
		Payment:        settings,
		UploadMaxBytes: config.UploadMaxBytes(),
		CORS:           middleware.DefaultCORSOptions(),
		RateLimit:      config.RateLimit(),
	})

	notifier := notification.New(mail.FromConfig(), config.NotifyWebhookURL())
	jobs.Register(rt.queue, rt.kernel.Orders, notifier, settings)
	return rt, nil
}

func (rt *runtime) close() {
	if rt.cache != nil {
		rt.cache.Close() //nolint:errcheck
	}
	if rt.db != nil {
		if sqlDB, err := rt.db.DB(); err == nil {
			sqlDB.Close() //nolint:errcheck
		}
	}
	rt.closeLog()
}

func queueDriver(store *cache.Store) queue.Driver {
	if config.QueueDriver() == "redis" {
		if store.Enabled() {
			return queue.NewRedisDriver(store.Client())
		}
		logger.Warn("QUEUE_DRIVER=redis but redis is unavailable, using the in-memory queue")
	}
	return queue.NewMemoryDriver()
}

func paymentSettings() payment.Settings {
	return payment.Settings{
		BankInstructions:   config.BankInstructions(),
		WalletInstructions: config.WalletInstructions(),
		WhatsAppNumber:     config.WhatsAppNumber(),
		DueWindow:          config.PaymentDueWindow(),
	}
}

// originAllowed checks websocket origins against CORS_ORIGINS.
func originAllowed(origins []string) func(string) bool {
	return func(origin string) bool {
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
