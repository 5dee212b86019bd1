package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/app/repositories"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/cache"
	"github.com/shashiranjanraj/giftkart/pkg/logger"
	"github.com/shashiranjanraj/giftkart/pkg/orm"
)

const giftCardTTL = 5 * time.Minute

// GiftCardQuery is a catalog listing request.
type GiftCardQuery struct {
	Page   int
	Limit  int
	Brand  string
	Search string
}

// GiftCardPage is one page of the catalog.
type GiftCardPage struct {
	GiftCards      []models.GiftCard `json:"giftCards"`
	TotalGiftCards int64             `json:"totalGiftCards"`
	TotalPages     int               `json:"totalPages"`
	CurrentPage    int               `json:"currentPage"`
}

// GiftCardInput creates a card.
type GiftCardInput struct {
	Brand    string          `json:"brand"    validate:"required,max=120"`
	Value    decimal.Decimal `json:"value"    validate:"gte=0"`
	Price    decimal.Decimal `json:"price"    validate:"gte=0"`
	ImageURL string          `json:"imageUrl" validate:"nullable,max=500"`
	Stock    int             `json:"stock"    validate:"gte=0"`
}

// GiftCardPatch updates the fields that are set.
type GiftCardPatch struct {
	Brand    *string          `json:"brand"    validate:"nullable,min=1,max=120"`
	Value    *decimal.Decimal `json:"value"    validate:"nullable,gte=0"`
	Price    *decimal.Decimal `json:"price"    validate:"nullable,gte=0"`
	ImageURL *string          `json:"imageUrl" validate:"nullable,max=500"`
	Stock    *int             `json:"stock"    validate:"nullable,gte=0"`
}

type GiftCardService struct {
	cards *repositories.GiftCardRepository
	cache *cache.Store
}

// NewGiftCardService wires the catalog. store may be nil.
func NewGiftCardService(cards *repositories.GiftCardRepository, store *cache.Store) *GiftCardService {
	return &GiftCardService{cards: cards, cache: store}
}

func giftCardKey(id uint) string { return fmt.Sprintf("giftcard:%d", id) }

// List returns a page of the catalog ordered by id.
func (s *GiftCardService) List(ctx context.Context, q GiftCardQuery) (GiftCardPage, error) {
	p := orm.NewPagination(q.Page, q.Limit, 10, 100)
	cards, err := s.cards.List(ctx, repositories.GiftCardFilter{
		Brand:  strings.TrimSpace(q.Brand),
		Search: strings.TrimSpace(q.Search),
	}, &p)
	if err != nil {
		return GiftCardPage{}, apperr.Internal(err, "list gift cards")
	}
	return GiftCardPage{
		GiftCards:      cards,
		TotalGiftCards: p.Total,
		TotalPages:     p.Pages,
		CurrentPage:    p.Page,
	}, nil
}

// Get reads through the cache. The cached copy serves the descriptive
// fields only; stock always comes from the database, so a concurrent refill
// of the cache can never show stock from before a sale.
func (s *GiftCardService) Get(ctx context.Context, id uint) (models.GiftCard, error) {
	var card models.GiftCard
	if s.cache.Get(ctx, giftCardKey(id), &card) {
		stock, err := s.cards.Stock(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.Invalidate(ctx, id)
			}
			return models.GiftCard{}, lookup(err, "Gift card not found")
		}
		card.Stock = stock
		return card, nil
	}

	card, err := s.cards.FindByID(ctx, id)
	if err != nil {
		return models.GiftCard{}, lookup(err, "Gift card not found")
	}
	if err := s.cache.Set(ctx, giftCardKey(id), card, giftCardTTL); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache set failed", "gift_card_id", id, "error", err)
	}
	return card, nil
}

func (s *GiftCardService) Create(ctx context.Context, in GiftCardInput) (models.GiftCard, error) {
	if in.Value.IsNegative() || in.Price.IsNegative() || in.Stock < 0 {
		return models.GiftCard{}, apperr.Validation("Value, price and stock must not be negative")
	}
	card := models.GiftCard{
		Brand:    strings.TrimSpace(in.Brand),
		Value:    in.Value.Round(2),
		Price:    in.Price.Round(2),
		ImageURL: strings.TrimSpace(in.ImageURL),
		Stock:    in.Stock,
	}
	if card.Brand == "" {
		return models.GiftCard{}, apperr.Validation("Brand is required")
	}
	if err := s.cards.Create(ctx, &card); err != nil {
		return models.GiftCard{}, apperr.Internal(err, "create gift card")
	}
	return card, nil
}

// Update writes only the fields present in the patch. Stock is touched only
// when the patch sets it, so it cannot overwrite a sale that landed meanwhile.
func (s *GiftCardService) Update(ctx context.Context, id uint, in GiftCardPatch) (models.GiftCard, error) {
	if (in.Value != nil && in.Value.IsNegative()) || (in.Price != nil && in.Price.IsNegative()) || (in.Stock != nil && *in.Stock < 0) {
		return models.GiftCard{}, apperr.Validation("Value, price and stock must not be negative")
	}
	if _, err := s.cards.FindByID(ctx, id); err != nil {
		return models.GiftCard{}, lookup(err, "Gift card not found")
	}

	fields := map[string]interface{}{}
	if in.Brand != nil {
		if b := strings.TrimSpace(*in.Brand); b != "" {
			fields["brand"] = b
		}
	}
	if in.Value != nil {
		fields["value"] = in.Value.Round(2)
	}
	if in.Price != nil {
		fields["price"] = in.Price.Round(2)
	}
	if in.ImageURL != nil {
		fields["image_url"] = strings.TrimSpace(*in.ImageURL)
	}
	if in.Stock != nil {
		fields["stock"] = *in.Stock
	}

	if err := s.cards.Patch(ctx, id, fields); err != nil {
		return models.GiftCard{}, apperr.Internal(err, "update gift card")
	}
	s.Invalidate(ctx, id)

	card, err := s.cards.FindByID(ctx, id)
	if err != nil {
		return models.GiftCard{}, lookup(err, "Gift card not found")
	}
	return card, nil
}

func (s *GiftCardService) Delete(ctx context.Context, id uint) error {
	found, err := s.cards.Delete(ctx, id)
	if err != nil {
		return apperr.Internal(err, "delete gift card")
	}
	if !found {
		return apperr.NotFound("Gift card not found")
	}
	s.Invalidate(ctx, id)
	return nil
}

// Invalidate drops cached cards, e.g. after their stock changed.
func (s *GiftCardService) Invalidate(ctx context.Context, ids ...uint) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, giftCardKey(id))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache invalidation failed", "error", err)
	}
}
