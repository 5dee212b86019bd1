package payment_test

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/giftkart/app/payment"
)

func TestNewReferenceFormat(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3*3600))

	for i := 0; i < 200; i++ {
		ref := payment.NewReference(now)
		require.Regexp(t, payment.ReferencePattern, ref)
		assert.True(t, strings.HasPrefix(ref, "ORD-20260304020607-"), "timestamp must be UTC: %s", ref)
	}
}

func TestWhatsAppLink(t *testing.T) {
	s := payment.Settings{WhatsAppNumber: "+1 (555) 0100"}
	link := s.WhatsAppLink("ORD-20260101000000-1234", decimal.RequireFromString("95"))

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "/15550100", u.Path)
	assert.Contains(t, u.Query().Get("text"), "ORD-20260101000000-1234")
	assert.Contains(t, u.Query().Get("text"), "95.00")
}

func TestInstructionsAndDueDate(t *testing.T) {
	s := payment.Settings{BankInstructions: "Pay to account 1", WalletInstructions: "Pay to wallet 2", DueWindow: 24 * time.Hour}
	total := decimal.NewFromInt(30)

	assert.Contains(t, s.Instructions(payment.MethodBankTransfer, "ORD-1", total), "Pay to account 1")
	assert.Contains(t, s.Instructions(payment.MethodMobileWallet, "ORD-1", total), "Pay to wallet 2")
	assert.Contains(t, s.Instructions(payment.MethodWhatsApp, "ORD-1", total), "WhatsApp")

	placed := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, placed.Add(24*time.Hour), s.DueDate(placed))

	assert.True(t, payment.MethodWhatsApp.Valid())
	assert.False(t, payment.Method("cash").Valid())
}
