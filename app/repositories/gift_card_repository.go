package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/pkg/orm"
)

// GiftCardFilter narrows a catalog listing.
type GiftCardFilter struct {
	Brand  string // exact, case-insensitive
	Search string // substring of brand, case-insensitive
}

// GiftCardRepository handles database operations for GiftCard.
type GiftCardRepository struct {
	db *gorm.DB
}

func NewGiftCardRepository(db *gorm.DB) *GiftCardRepository {
	return &GiftCardRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *GiftCardRepository) WithTx(tx *gorm.DB) *GiftCardRepository {
	return &GiftCardRepository{db: tx}
}

func (r *GiftCardRepository) FindByID(ctx context.Context, id uint) (models.GiftCard, error) {
	var card models.GiftCard
	err := r.db.WithContext(ctx).First(&card, id).Error
	return card, err
}

func (r *GiftCardRepository) List(ctx context.Context, f GiftCardFilter, p *orm.Pagination) ([]models.GiftCard, error) {
	q := r.db.WithContext(ctx).Model(&models.GiftCard{})
	if f.Brand != "" {
		q = q.Where("LOWER(brand) = ?", strings.ToLower(f.Brand))
	}
	if f.Search != "" {
		q = q.Where("LOWER(brand) LIKE ?", "%"+strings.ToLower(f.Search)+"%")
	}

	var cards []models.GiftCard
	err := orm.Paginate(q.Order("id ASC"), p, &cards)
	return cards, err
}

func (r *GiftCardRepository) Create(ctx context.Context, card *models.GiftCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

// Patch writes only the given columns, so concurrent stock changes on the
// other columns survive.
func (r *GiftCardRepository) Patch(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.GiftCard{}).Where("id = ?", id).Updates(fields).Error
}

// Stock reads the live stock of one card.
func (r *GiftCardRepository) Stock(ctx context.Context, id uint) (int, error) {
	var card models.GiftCard
	err := r.db.WithContext(ctx).Select("id", "stock").First(&card, id).Error
	return card.Stock, err
}

// Delete removes the card and reports whether a row existed.
func (r *GiftCardRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.GiftCard{}, id)
	return res.RowsAffected > 0, res.Error
}

// DecrementStock takes qty units in one conditional UPDATE. It returns false,
// leaving the row untouched, when fewer than qty units remain.
func (r *GiftCardRepository) DecrementStock(ctx context.Context, id uint, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.GiftCard{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	return res.RowsAffected == 1, res.Error
}

// IncrementStock returns qty units to the card.
func (r *GiftCardRepository) IncrementStock(ctx context.Context, id uint, qty int) error {
	return r.db.WithContext(ctx).Model(&models.GiftCard{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}
