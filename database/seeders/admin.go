package seeders

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/config"
	"github.com/shashiranjanraj/giftkart/pkg/auth"
)

func init() {
	Register("admin_user", SeedAdmin)
}

// SeedAdmin creates the ADMIN_EMAIL account with the admin role, or
// promotes it when the account already exists.
func SeedAdmin(db *gorm.DB) error {
	var existing models.User
	err := db.Where("email = ?", config.AdminEmail()).First(&existing).Error
	switch {
	case err == nil:
		if existing.Role == auth.RoleAdmin {
			return nil
		}
		return db.Model(&existing).Update("role", auth.RoleAdmin).Error
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	hash, err := auth.HashPassword(config.AdminPassword())
	if err != nil {
		return err
	}
	return db.Create(&models.User{
		Name:     config.AdminName(),
		Email:    config.AdminEmail(),
		Password: hash,
		Role:     auth.RoleAdmin,
	}).Error
}
