package payment

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Method is how the buyer intends to pay.
type Method string

const (
	MethodBankTransfer Method = "bank_transfer"
	MethodMobileWallet Method = "mobile_wallet"
	MethodWhatsApp     Method = "whatsapp"
)

// Methods lists the accepted methods in display order.
var Methods = []Method{MethodBankTransfer, MethodMobileWallet, MethodWhatsApp}

func (m Method) Valid() bool {
	for _, v := range Methods {
		if v == m {
			return true
		}
	}
	return false
}

// Settings carries the configured payment texts.
type Settings struct {
	BankInstructions   string
	WalletInstructions string
	WhatsAppNumber     string
	DueWindow          time.Duration
}

// Instructions returns the text shown to the buyer for m.
func (s Settings) Instructions(m Method, reference string, total decimal.Decimal) string {
	amount := total.StringFixed(2)
	switch m {
	case MethodBankTransfer:
		return fmt.Sprintf("%s\nReference: %s\nAmount: %s", s.BankInstructions, reference, amount)
	case MethodMobileWallet:
		return fmt.Sprintf("%s\nReference: %s\nAmount: %s", s.WalletInstructions, reference, amount)
	case MethodWhatsApp:
		return fmt.Sprintf("Message us on WhatsApp with your reference %s to receive payment details for %s.", reference, amount)
	}
	return ""
}

// WhatsAppLink builds a wa.me deep link with a prefilled message quoting
// the reference and amount. Non-digits are stripped from the number.
func (s Settings) WhatsAppLink(reference string, total decimal.Decimal) string {
	number := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s.WhatsAppNumber)

	msg := fmt.Sprintf("Hello, I would like to pay for order %s (amount %s).", reference, total.StringFixed(2))
	return "https://wa.me/" + number + "?text=" + url.QueryEscape(msg)
}

// DueDate is the payment deadline for an order placed at placedAt.
func (s Settings) DueDate(placedAt time.Time) time.Time {
	return placedAt.Add(s.DueWindow)
}
