package services

import (
	"context"
	"strings"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/app/repositories"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/auth"
	"github.com/shashiranjanraj/giftkart/pkg/orm"
)

// UpdateUserInput is a partial profile update. Nil fields are left alone.
type UpdateUserInput struct {
	Name     *string `json:"name"     validate:"nullable,min=1,max=255"`
	Email    *string `json:"email"    validate:"nullable,email,max=255"`
	Phone    *string `json:"phone"    validate:"nullable,max=50"`
	Password *string `json:"password" validate:"nullable,min=6,max=72"`
	Role     *string `json:"role"     validate:"nullable,in=user|admin"`
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users       []models.User `json:"users"`
	TotalUsers  int64         `json:"totalUsers"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
}

type UserService struct {
	users *repositories.UserRepository
}

func NewUserService(users *repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

// List is admin only; the route guard enforces it.
func (s *UserService) List(ctx context.Context, page, limit int) (UserPage, error) {
	p := orm.NewPagination(page, limit, 20, 100)
	users, err := s.users.List(ctx, &p)
	if err != nil {
		return UserPage{}, apperr.Internal(err, "list users")
	}
	return UserPage{Users: users, TotalUsers: p.Total, TotalPages: p.Pages, CurrentPage: p.Page}, nil
}

// Get returns a profile to its owner or an admin.
func (s *UserService) Get(ctx context.Context, actor auth.Principal, id uint) (models.User, error) {
	if !actor.CanAccess(id) {
		return models.User{}, apperr.Forbidden("Not authorized to view this profile")
	}
	user, err := s.users.FindByID(ctx, id)
	return user, lookup(err, "User not found")
}

// Update edits a profile. Only admins may change roles; a non-admin sending
// a role other than their current one is refused.
func (s *UserService) Update(ctx context.Context, actor auth.Principal, id uint, in UpdateUserInput) (models.User, error) {
	if !actor.CanAccess(id) {
		return models.User{}, apperr.Forbidden("Not authorized to update this profile")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return models.User{}, lookup(err, "User not found")
	}

	if in.Role != nil && *in.Role != user.Role && !actor.IsAdmin() {
		return models.User{}, apperr.Forbidden("Not authorized to change user role")
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != user.Email {
			taken, err := s.users.EmailTaken(ctx, email, user.ID)
			if err != nil {
				return models.User{}, apperr.Internal(err, "check email")
			}
			if taken {
				return models.User{}, apperr.Conflict("Email already in use by another account")
			}
			user.Email = email
		}
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone != "" && phone != user.Phone {
			taken, err := s.users.PhoneTaken(ctx, phone, user.ID)
			if err != nil {
				return models.User{}, apperr.Internal(err, "check phone")
			}
			if taken {
				return models.User{}, apperr.Conflict("Phone number already in use by another account")
			}
		}
		user.Phone = phone
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return models.User{}, apperr.Internal(err, "hash password")
		}
		user.Password = hash
	}
	if in.Role != nil && actor.IsAdmin() {
		user.Role = *in.Role
	}

	if err := s.users.Update(ctx, &user); err != nil {
		return models.User{}, apperr.Internal(err, "update user")
	}
	return user, nil
}

// Delete removes an account. Admins cannot delete themselves here.
func (s *UserService) Delete(ctx context.Context, actor auth.Principal, id uint) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("Not authorized as an admin")
	}
	if actor.UserID == id {
		return apperr.Validation("Cannot delete your own account via this endpoint")
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return lookup(err, "User not found")
	}
	return internal(s.users.Delete(ctx, id), "delete user")
}
