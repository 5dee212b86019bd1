package services

import (
	"context"
	"strings"
	"time"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/app/repositories"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
)

// TestimonialInput is a new review.
type TestimonialInput struct {
	Rating  int    `json:"rating"  validate:"required,between=1|5"`
	Comment string `json:"comment" validate:"required,max=2000"`
}

// PublicTestimonial is what anonymous visitors see: no ids, no email.
type PublicTestimonial struct {
	ID        uint       `json:"id"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	User      PublicUser `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
}

// PublicUser exposes only the author's name.
type PublicUser struct {
	Name string `json:"name"`
}

type TestimonialService struct {
	testimonials *repositories.TestimonialRepository
}

func NewTestimonialService(testimonials *repositories.TestimonialRepository) *TestimonialService {
	return &TestimonialService{testimonials: testimonials}
}

// Create stores an unapproved testimonial.
func (s *TestimonialService) Create(ctx context.Context, userID uint, in TestimonialInput) (models.Testimonial, error) {
	comment := strings.TrimSpace(in.Comment)
	if in.Rating == 0 || comment == "" {
		return models.Testimonial{}, apperr.Validation("Rating and comment are required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return models.Testimonial{}, apperr.Validation("Rating must be between 1 and 5")
	}

	t := models.Testimonial{UserID: userID, Rating: in.Rating, Comment: comment}
	if err := s.testimonials.Create(ctx, &t); err != nil {
		return models.Testimonial{}, apperr.Internal(err, "create testimonial")
	}
	return t, nil
}

// ListApproved returns approved testimonials with the author's name only.
func (s *TestimonialService) ListApproved(ctx context.Context) ([]PublicTestimonial, error) {
	list, err := s.testimonials.List(ctx, true)
	if err != nil {
		return nil, apperr.Internal(err, "list testimonials")
	}
	out := make([]PublicTestimonial, 0, len(list))
	for _, t := range list {
		pt := PublicTestimonial{ID: t.ID, Rating: t.Rating, Comment: t.Comment, CreatedAt: t.CreatedAt}
		if t.User != nil {
			pt.User.Name = t.User.Name
		}
		out = append(out, pt)
	}
	return out, nil
}

// ListAll returns every testimonial with its author, for moderation.
func (s *TestimonialService) ListAll(ctx context.Context) ([]models.Testimonial, error) {
	list, err := s.testimonials.List(ctx, false)
	if err != nil {
		return nil, apperr.Internal(err, "list testimonials")
	}
	return list, nil
}

func (s *TestimonialService) Approve(ctx context.Context, id uint) (models.Testimonial, error) {
	if _, err := s.testimonials.FindByID(ctx, id); err != nil {
		return models.Testimonial{}, lookup(err, "Testimonial not found")
	}
	if _, err := s.testimonials.Approve(ctx, id); err != nil {
		return models.Testimonial{}, apperr.Internal(err, "approve testimonial")
	}
	t, err := s.testimonials.FindByID(ctx, id)
	return t, lookup(err, "Testimonial not found")
}

func (s *TestimonialService) Delete(ctx context.Context, id uint) error {
	found, err := s.testimonials.Delete(ctx, id)
	if err != nil {
		return apperr.Internal(err, "delete testimonial")
	}
	if !found {
		return apperr.NotFound("Testimonial not found")
	}
	return nil
}
