package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/app/payment"
	"github.com/shashiranjanraj/giftkart/app/repositories"
	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/auth"
	"github.com/shashiranjanraj/giftkart/pkg/cache"
	"github.com/shashiranjanraj/giftkart/pkg/database"
	"github.com/shashiranjanraj/giftkart/pkg/event"
	"github.com/shashiranjanraj/giftkart/pkg/storage"
)

type harness struct {
	db           *gorm.DB
	disk         storage.Disk
	events       *event.Dispatcher
	cache        *cache.Store
	auth         *services.AuthService
	users        *services.UserService
	catalog      *services.GiftCardService
	orders       *services.OrderService
	testimonials *services.TestimonialService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return buildHarness(t, nil)
}

// newRedisHarness backs the catalog cache with an in-process redis.
func newRedisHarness(t *testing.T) (*harness, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return buildHarness(t, cache.New(rdb)), mr
}

func buildHarness(t *testing.T, store *cache.Store) *harness {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	disk, err := storage.NewLocalDisk(t.TempDir(), "http://localhost/storage")
	require.NoError(t, err)

	h := &harness{db: db, disk: disk, events: event.New(), cache: store}
	userRepo := repositories.NewUserRepository(db)
	h.auth = services.NewAuthService(userRepo)
	h.users = services.NewUserService(userRepo)
	h.catalog = services.NewGiftCardService(repositories.NewGiftCardRepository(db), store)
	h.orders = services.NewOrderService(db, h.catalog, services.NewProofStore(disk, 1<<20), h.events, payment.Settings{
		BankInstructions:   "Pay to account 1",
		WalletInstructions: "Pay to wallet 2",
		WhatsAppNumber:     "+1 555 0100",
		DueWindow:          24 * time.Hour,
	})
	h.testimonials = services.NewTestimonialService(repositories.NewTestimonialRepository(db))
	return h
}

func (h *harness) card(t *testing.T, brand string, price string, stock int) models.GiftCard {
	t.Helper()
	c := models.GiftCard{
		Brand: brand,
		Value: decimal.RequireFromString(price),
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	require.NoError(t, h.db.Create(&c).Error)
	return c
}

func (h *harness) user(t *testing.T, email, role string) auth.Principal {
	t.Helper()
	res, err := h.auth.Register(context.Background(), services.RegisterInput{Name: "U-" + strings.Split(email, "@")[0], Email: email, Password: "secret1"})
	require.NoError(t, err)
	if role == auth.RoleAdmin {
		require.NoError(t, h.db.Model(&models.User{}).Where("id = ?", res.User.ID).Update("role", auth.RoleAdmin).Error)
	}
	return auth.Principal{UserID: res.User.ID, Role: role}
}

func (h *harness) stock(t *testing.T, id uint) int {
	t.Helper()
	var c models.GiftCard
	require.NoError(t, h.db.First(&c, id).Error)
	return c.Stock
}
