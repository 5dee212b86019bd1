package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/app/repositories"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/auth"
)

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone"    validate:"nullable,max=50"`
}

// LoginInput is the credentials payload.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(users *repositories.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Register creates a user account with role "user".
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	email := normalizeEmail(in.Email)

	taken, err := s.users.EmailTaken(ctx, email, 0)
	if err != nil {
		return AuthResult{}, apperr.Internal(err, "check email")
	}
	if taken {
		return AuthResult{}, apperr.Conflict("Email already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, apperr.Internal(err, "hash password")
	}

	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: hash,
		Phone:    strings.TrimSpace(in.Phone),
		Role:     auth.RoleUser,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return AuthResult{}, apperr.Conflict("Email already registered")
		}
		return AuthResult{}, apperr.Internal(err, "create user")
	}
	return s.issue(user)
}

// Login checks credentials. Unknown email and wrong password fail the same way.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AuthResult{}, apperr.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return AuthResult{}, apperr.Internal(err, "find user")
	}
	if !auth.CheckPassword(user.Password, in.Password) {
		return AuthResult{}, apperr.Unauthorized("Invalid email or password")
	}
	return s.issue(user)
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, userID uint) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, apperr.Unauthorized("User not found or not authenticated")
	}
	return user, internal(err, "find user")
}

// Principal resolves a token subject to the current role. It backs the
// auth middleware so deleted users and demoted admins lose access at once.
func (s *AuthService) Principal(ctx context.Context, userID uint) (auth.Principal, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return auth.Principal{}, lookup(err, "User not found")
	}
	return auth.Principal{UserID: user.ID, Role: user.Role}, nil
}

func (s *AuthService) issue(user models.User) (AuthResult, error) {
	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return AuthResult{}, apperr.Internal(err, "sign token")
	}
	return AuthResult{Token: token, User: user}, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
