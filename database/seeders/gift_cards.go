package seeders

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/models"
)

func init() {
	Register("gift_cards", SeedGiftCards)
}

var sampleGiftCards = []models.GiftCard{
	{Brand: "Amazon", Value: decimal.NewFromInt(25), Price: decimal.NewFromInt(25), Stock: 50, ImageURL: "https://upload.wikimedia.org/wikipedia/commons/a/a9/Amazon_logo.svg"},
	{Brand: "Netflix", Value: decimal.NewFromInt(50), Price: decimal.NewFromInt(50), Stock: 30, ImageURL: "https://upload.wikimedia.org/wikipedia/commons/0/08/Netflix_2015_logo.svg"},
	{Brand: "Apple", Value: decimal.NewFromInt(100), Price: decimal.NewFromInt(95), Stock: 20, ImageURL: "https://upload.wikimedia.org/wikipedia/commons/f/fa/Apple_logo_black.svg"},
	{Brand: "Spotify", Value: decimal.NewFromInt(15), Price: decimal.NewFromInt(15), Stock: 40, ImageURL: "https://upload.wikimedia.org/wikipedia/commons/1/19/Spotify_logo_without_text.svg"},
	{Brand: "Google Play", Value: decimal.NewFromInt(35), Price: decimal.NewFromInt(35), Stock: 25, ImageURL: "https://upload.wikimedia.org/wikipedia/commons/7/78/Google_Play_Store_badge_EN.svg"},
}

// SeedGiftCards inserts the sample catalog. Brands already present are skipped.
func SeedGiftCards(db *gorm.DB) error {
	for _, card := range sampleGiftCards {
		card := card // per-iteration copy (go 1.21 loop semantics)
		var n int64
		if err := db.Model(&models.GiftCard{}).Where("brand = ?", card.Brand).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if err := db.Create(&card).Error; err != nil {
			return err
		}
	}
	return nil
}
