package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/app/payment"
	"github.com/shashiranjanraj/giftkart/pkg/orm"
)

// OrderFilter narrows an order listing. Zero values mean "any".
type OrderFilter struct {
	UserID        uint
	GiftCardID    uint
	PaymentStatus payment.Status
	Start         *time.Time
	End           *time.Time
	Sort          string // purchasedAt | createdAt | totalPrice | quantity
	Order         string // asc | desc
}

const exportBatch = 200

var orderSortColumns = map[string]string{
	"purchasedAt": "purchased_at",
	"createdAt":   "created_at",
	"totalPrice":  "total_price",
	"quantity":    "quantity",
}

// OrderRepository handles database operations for Order.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

// FindByID loads an order with its buyer and gift card.
func (r *OrderRepository) FindByID(ctx context.Context, id uint) (models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("User").Preload("GiftCard").First(&o, id).Error
	return o, err
}

// ReferenceExists reports whether code is already assigned.
func (r *OrderRepository) ReferenceExists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("payment_reference_code = ?", code).Count(&n).Error
	return n > 0, err
}

// Transition applies updates only while the order is still in status from.
// It returns false when another writer moved the order first.
func (r *OrderRepository) Transition(ctx context.Context, id uint, from payment.Status, updates map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// List returns a filtered, sorted page of orders with buyer and card loaded.
func (r *OrderRepository) List(ctx context.Context, f OrderFilter, p *orm.Pagination) ([]models.Order, error) {
	q := sortOrders(applyOrderFilter(r.db.WithContext(ctx).Model(&models.Order{}), f), f)

	var orders []models.Order
	err := orm.Paginate(q, p, &orders, "User", "GiftCard")
	return orders, err
}

// All streams every order matching f to fn in batches, in the same order a
// listing with f would show them. Used by exports.
func (r *OrderRepository) All(ctx context.Context, f OrderFilter, fn func([]models.Order) error) error {
	q := sortOrders(applyOrderFilter(r.db.WithContext(ctx).Model(&models.Order{}), f), f).
		Session(&gorm.Session{})

	for offset := 0; ; offset += exportBatch {
		var batch []models.Order
		if err := q.Preload("User").Offset(offset).Limit(exportBatch).Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < exportBatch {
			return nil
		}
	}
}

func applyOrderFilter(q *gorm.DB, f OrderFilter) *gorm.DB {
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.GiftCardID != 0 {
		q = q.Where("gift_card_id = ?", f.GiftCardID)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.Start != nil {
		q = q.Where("purchased_at >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("purchased_at <= ?", *f.End)
	}
	return q
}

// sortOrders applies the requested sort with id as the tie breaker, so
// pages and export batches are stable.
func sortOrders(q *gorm.DB, f OrderFilter) *gorm.DB {
	return q.Order(orm.OrderBy(f.Sort, f.Order, orderSortColumns, "purchased_at")).Order("id DESC")
}

// Overdue returns up to limit unpaid orders whose due date is before now.
func (r *OrderRepository) Overdue(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("payment_status = ? AND payment_due_date IS NOT NULL AND payment_due_date < ?", payment.StatusPendingPayment, now).
		Order("payment_due_date ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
