package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/giftkart/app/payment"
)

// Order lifecycle status, separate from the payment status.
const (
	OrderPending   = "pending"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

// PaymentProof is the evidence a buyer submits for an offline payment.
type PaymentProof struct {
	File          string     `gorm:"size:500" json:"file,omitempty"`
	ContentType   string     `gorm:"size:100" json:"contentType,omitempty"`
	TransactionID string     `gorm:"size:120" json:"transactionId,omitempty"`
	UploadedAt    *time.Time `json:"uploadedAt,omitempty"`
}

// Present reports whether any proof was submitted.
func (p PaymentProof) Present() bool {
	return p.File != "" || p.TransactionID != ""
}

// Order is one purchase of a single gift card in some quantity. Brand,
// ImageURL and UnitPrice are frozen copies taken when the order was placed.
type Order struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;index" json:"userId"`
	User       *User           `json:"user,omitempty"`
	GiftCardID uint            `gorm:"not null;index" json:"giftCardId"`
	GiftCard   *GiftCard       `json:"giftCard,omitempty"`
	Brand      string          `gorm:"size:120" json:"brand"`
	ImageURL   string          `gorm:"size:500" json:"imageUrl,omitempty"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalPrice"`
	Status     string          `gorm:"size:20;not null;default:pending;index" json:"status"`

	PaymentMethod        payment.Method `gorm:"size:30;not null" json:"paymentMethod"`
	PaymentStatus        payment.Status `gorm:"size:30;not null;index" json:"paymentStatus"`
	PaymentReferenceCode string         `gorm:"size:40;uniqueIndex;not null" json:"paymentReferenceCode"`
	PaymentProof         PaymentProof   `gorm:"embedded;embeddedPrefix:payment_proof_" json:"paymentProof"`
	PaymentDueDate       *time.Time     `gorm:"index" json:"paymentDueDate,omitempty"`
	PaidAt               *time.Time     `json:"paidAt,omitempty"`
	VerificationNote     string         `gorm:"size:500" json:"verificationNote,omitempty"`

	PurchasedAt time.Time `gorm:"index" json:"purchasedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
