package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/models"
)

// TestimonialRepository handles database operations for Testimonial.
type TestimonialRepository struct {
	db *gorm.DB
}

func NewTestimonialRepository(db *gorm.DB) *TestimonialRepository {
	return &TestimonialRepository{db: db}
}

func (r *TestimonialRepository) Create(ctx context.Context, t *models.Testimonial) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// List returns testimonials newest first with their authors. When
// approvedOnly is set, unapproved entries are skipped.
func (r *TestimonialRepository) List(ctx context.Context, approvedOnly bool) ([]models.Testimonial, error) {
	q := r.db.WithContext(ctx).Preload("User").Order("created_at DESC").Order("id DESC")
	if approvedOnly {
		q = q.Where("is_approved = ?", true)
	}
	var out []models.Testimonial
	err := q.Find(&out).Error
	return out, err
}

func (r *TestimonialRepository) FindByID(ctx context.Context, id uint) (models.Testimonial, error) {
	var t models.Testimonial
	err := r.db.WithContext(ctx).Preload("User").First(&t, id).Error
	return t, err
}

// Approve flags the testimonial as visible and reports whether it existed.
func (r *TestimonialRepository) Approve(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Testimonial{}).Where("id = ?", id).Update("is_approved", true)
	return res.RowsAffected > 0, res.Error
}

// Delete removes the testimonial and reports whether it existed.
func (r *TestimonialRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Testimonial{}, id)
	return res.RowsAffected > 0, res.Error
}
