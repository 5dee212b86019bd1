package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// GiftCard is a catalog entry. Value is the face value, Price what the buyer pays.
type GiftCard struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Brand     string          `gorm:"size:120;not null;index" json:"brand"`
	Value     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"value"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	ImageURL  string          `gorm:"size:500" json:"imageUrl,omitempty"`
	Stock     int             `gorm:"not null;default:0" json:"stock"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
