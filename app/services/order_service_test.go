package services_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/app/payment"
	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/auth"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func pngUpload() *services.ProofUpload {
	return &services.ProofUpload{Reader: bytes.NewReader(pngHeader), Size: int64(len(pngHeader)), Filename: "proof.png"}
}

func TestPlaceOrderDecrementsStockAndFreezesTotal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	card := h.card(t, "Amazon", "10", 5)
	buyer := h.user(t, "buyer@test.com", auth.RoleUser)

	var fired []services.OrderEvent
	h.events.Listen(services.EventOrderPlaced, func(_ context.Context, p any) {
		fired = append(fired, p.(services.OrderEvent))
	})

	res, err := h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, h.stock(t, card.ID))
	assert.Equal(t, "30", res.Order.TotalPrice.String())
	assert.Equal(t, payment.StatusPendingPayment, res.Order.PaymentStatus)
	assert.Equal(t, models.OrderPending, res.Order.Status)
	assert.Equal(t, payment.MethodBankTransfer, res.Order.PaymentMethod)
	assert.Regexp(t, payment.ReferencePattern, res.PaymentReferenceCode)
	assert.Contains(t, res.PaymentInstructions, "Pay to account 1")
	assert.Contains(t, res.PaymentInstructions, res.PaymentReferenceCode)
	assert.Empty(t, res.WhatsAppLink)
	assert.WithinDuration(t, res.Order.PurchasedAt.Add(24*time.Hour), res.PaymentDueDate, time.Second)
	require.Len(t, fired, 1)
	assert.Equal(t, res.Order.ID, fired[0].Order.ID)

	// Price changes later must not touch the frozen total.
	require.NoError(t, h.db.Model(&models.GiftCard{}).Where("id = ?", card.ID).Update("price", 99).Error)
	var stored models.Order
	require.NoError(t, h.db.First(&stored, res.Order.ID).Error)
	assert.Equal(t, "30", stored.TotalPrice.String())
}

func TestPlaceOrderWhatsAppLink(t *testing.T) {
	h := newHarness(t)
	card := h.card(t, "Netflix", "50", 3)
	buyer := h.user(t, "wa@test.com", auth.RoleUser)

	res, err := h.orders.PlaceOrder(context.Background(), buyer.UserID, services.PlaceOrderInput{
		GiftCardID: card.ID, Quantity: 1, PaymentMethod: payment.MethodWhatsApp,
	})
	require.NoError(t, err)
	assert.Contains(t, res.WhatsAppLink, "https://wa.me/15550100?text=")
	assert.Contains(t, res.WhatsAppLink, res.PaymentReferenceCode)
}

func TestPlaceOrderFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	card := h.card(t, "Apple", "95", 2)
	buyer := h.user(t, "f@test.com", auth.RoleUser)

	_, err := h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 3})
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	assert.Equal(t, 2, h.stock(t, card.ID), "stock must be untouched")

	_, err = h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: 999, Quantity: 1})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 0})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 1, PaymentMethod: "cash"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	var n int64
	h.db.Model(&models.Order{}).Count(&n)
	assert.Zero(t, n)
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	h := newHarness(t)
	card := h.card(t, "Spotify", "10", 5)
	buyer := h.user(t, "race@test.com", auth.RoleUser)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		i := i // per-iteration copy (go 1.21 loop semantics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.orders.PlaceOrder(context.Background(), buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 3})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, h.stock(t, card.ID))
}

func TestSimulateCheckoutIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.card(t, "Amazon", "25", 5)
	b := h.card(t, "Google Play", "35", 1)
	buyer := h.user(t, "cart@test.com", auth.RoleUser)

	_, err := h.orders.SimulateCheckout(ctx, buyer.UserID, services.CheckoutInput{Items: []services.CheckoutItem{
		{GiftCardID: a.ID, Quantity: 2},
		{GiftCardID: b.ID, Quantity: 2},
	}})
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	assert.Equal(t, 5, h.stock(t, a.ID), "earlier line must be rolled back")
	assert.Equal(t, 1, h.stock(t, b.ID))

	res, err := h.orders.SimulateCheckout(ctx, buyer.UserID, services.CheckoutInput{Items: []services.CheckoutItem{
		{GiftCardID: a.ID, Quantity: 2},
		{GiftCardID: b.ID, Quantity: 1},
	}})
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)
	assert.NotEqual(t, res.Orders[0].PaymentReferenceCode, res.Orders[1].PaymentReferenceCode)
	assert.Equal(t, 3, h.stock(t, a.ID))
	assert.Equal(t, 0, h.stock(t, b.ID))

	_, err = h.orders.SimulateCheckout(ctx, buyer.UserID, services.CheckoutInput{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestProofUploadAndVerification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	card := h.card(t, "Amazon", "25", 5)
	buyer := h.user(t, "proof@test.com", auth.RoleUser)
	other := h.user(t, "other@test.com", auth.RoleUser)
	admin := h.user(t, "admin@test.com", auth.RoleAdmin)

	placed, err := h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 1})
	require.NoError(t, err)
	id := placed.Order.ID

	// Verification before any proof is an invalid transition.
	_, err = h.orders.VerifyPayment(ctx, id, services.VerifyInput{Decision: services.DecisionApproved})
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	_, err = h.orders.UploadProof(ctx, other.UserID, id, services.ProofInput{TransactionID: "TX1"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = h.orders.UploadProof(ctx, buyer.UserID, id, services.ProofInput{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	o, err := h.orders.UploadProof(ctx, buyer.UserID, id, services.ProofInput{File: pngUpload(), TransactionID: "TX1"})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaymentReview, o.PaymentStatus)
	assert.Regexp(t, `^payments/proof-\d+-[0-9a-f]{8}\.png$`, o.PaymentProof.File)
	first := o.PaymentProof.File

	// A second upload replaces the file and stays in review.
	o, err = h.orders.UploadProof(ctx, buyer.UserID, id, services.ProofInput{File: pngUpload()})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaymentReview, o.PaymentStatus)
	assert.Equal(t, "TX1", o.PaymentProof.TransactionID)
	exists, err := h.disk.Exists(ctx, first)
	require.NoError(t, err)
	assert.False(t, exists, "replaced proof file must be deleted")

	_, _, err = h.orders.OpenProof(ctx, other, id)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	proof, file, err := h.orders.OpenProof(ctx, admin, id)
	require.NoError(t, err)
	require.NotNil(t, file)
	body, _ := io.ReadAll(file.Body)
	file.Body.Close()
	assert.Equal(t, pngHeader, body)
	assert.Equal(t, "image/png", file.ContentType)
	assert.Equal(t, "TX1", proof.TransactionID)

	_, err = h.orders.VerifyPayment(ctx, id, services.VerifyInput{Decision: "maybe"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	o, err = h.orders.VerifyPayment(ctx, id, services.VerifyInput{Decision: services.DecisionRejected, Note: "blurry"})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPendingPayment, o.PaymentStatus)
	assert.Equal(t, o.PaymentProof.TransactionID, "TX1", "rejected proof stays visible")

	_, err = h.orders.UploadProof(ctx, buyer.UserID, id, services.ProofInput{TransactionID: "TX2"})
	require.NoError(t, err)
	o, err = h.orders.VerifyPayment(ctx, id, services.VerifyInput{Decision: services.DecisionApproved})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, o.PaymentStatus)
	assert.Equal(t, models.OrderCompleted, o.Status)
	require.NotNil(t, o.PaidAt)

	// Paid is terminal.
	_, err = h.orders.UploadProof(ctx, buyer.UserID, id, services.ProofInput{TransactionID: "TX3"})
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	_, err = h.orders.Cancel(ctx, buyer, id)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestProofRejectsUnsupportedAndOversizeFiles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	card := h.card(t, "Amazon", "25", 5)
	buyer := h.user(t, "types@test.com", auth.RoleUser)
	placed, err := h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 1})
	require.NoError(t, err)

	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	_, err = h.orders.UploadProof(ctx, buyer.UserID, placed.Order.ID, services.ProofInput{File: &services.ProofUpload{
		Reader: bytes.NewReader(gif), Size: int64(len(gif)), Declared: "image/png",
	}})
	assert.Equal(t, apperr.KindUnsupportedMediaType, apperr.KindOf(err))

	_, err = h.orders.UploadProof(ctx, buyer.UserID, placed.Order.ID, services.ProofInput{File: &services.ProofUpload{
		Reader: bytes.NewReader(pngHeader), Size: 2 << 20,
	}})
	assert.Equal(t, apperr.KindPayloadTooLarge, apperr.KindOf(err))

	var o models.Order
	require.NoError(t, h.db.First(&o, placed.Order.ID).Error)
	assert.Equal(t, payment.StatusPendingPayment, o.PaymentStatus)
}

func TestCancelRestoresStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	card := h.card(t, "Amazon", "25", 5)
	buyer := h.user(t, "cancel@test.com", auth.RoleUser)
	other := h.user(t, "nosy@test.com", auth.RoleUser)

	placed, err := h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, h.stock(t, card.ID))

	_, err = h.orders.Cancel(ctx, other, placed.Order.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	o, err := h.orders.Cancel(ctx, buyer, placed.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCancelled, o.PaymentStatus)
	assert.Equal(t, models.OrderCancelled, o.Status)
	assert.Equal(t, 5, h.stock(t, card.ID))

	_, err = h.orders.Cancel(ctx, buyer, placed.Order.ID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, 5, h.stock(t, card.ID), "second cancel must not restore twice")
}

func TestExpireOverdue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	card := h.card(t, "Amazon", "25", 10)
	buyer := h.user(t, "late@test.com", auth.RoleUser)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	h.orders.SetClock(func() time.Time { return base })
	for i := 0; i < 3; i++ {
		_, err := h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 2})
		require.NoError(t, err)
	}
	inReview, err := h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = h.orders.UploadProof(ctx, buyer.UserID, inReview.Order.ID, services.ProofInput{TransactionID: "TX"})
	require.NoError(t, err)
	assert.Equal(t, 3, h.stock(t, card.ID))

	n, err := h.orders.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is due yet")

	h.orders.SetClock(func() time.Time { return base.Add(25 * time.Hour) })
	n, err = h.orders.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 9, h.stock(t, card.ID))

	var o models.Order
	require.NoError(t, h.db.First(&o, inReview.Order.ID).Error)
	assert.Equal(t, payment.StatusPaymentReview, o.PaymentStatus, "orders under review are not expired")
}

func TestRejectedPaymentGetsFreshDueDate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	card := h.card(t, "Amazon", "25", 5)
	buyer := h.user(t, "slowreview@test.com", auth.RoleUser)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	h.orders.SetClock(func() time.Time { return base })
	placed, err := h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = h.orders.UploadProof(ctx, buyer.UserID, placed.Order.ID, services.ProofInput{TransactionID: "TX1"})
	require.NoError(t, err)

	// The review finishes after the original 24h deadline.
	reviewed := base.Add(30 * time.Hour)
	h.orders.SetClock(func() time.Time { return reviewed })
	o, err := h.orders.VerifyPayment(ctx, placed.Order.ID, services.VerifyInput{Decision: services.DecisionRejected})
	require.NoError(t, err)
	require.NotNil(t, o.PaymentDueDate)
	assert.True(t, o.PaymentDueDate.Equal(reviewed.Add(24*time.Hour)))

	n, err := h.orders.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, h.stock(t, card.ID))

	o, err = h.orders.UploadProof(ctx, buyer.UserID, placed.Order.ID, services.ProofInput{TransactionID: "TX2"})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaymentReview, o.PaymentStatus)

	// Left unpaid again, the new deadline still applies.
	_, err = h.orders.VerifyPayment(ctx, placed.Order.ID, services.VerifyInput{Decision: services.DecisionRejected})
	require.NoError(t, err)
	h.orders.SetClock(func() time.Time { return reviewed.Add(25 * time.Hour) })
	n, err = h.orders.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 5, h.stock(t, card.ID))
}

func TestListOrders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	card := h.card(t, "Amazon", "10", 50)
	alice := h.user(t, "alice@test.com", auth.RoleUser)
	bob := h.user(t, "bob@test.com", auth.RoleUser)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		i := i // per-iteration copy (go 1.21 loop semantics)
		h.orders.SetClock(func() time.Time { return base.Add(time.Duration(i) * time.Hour) })
		_, err := h.orders.PlaceOrder(ctx, alice.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 1 + i%3})
		require.NoError(t, err)
	}
	_, err := h.orders.PlaceOrder(ctx, bob.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: 1})
	require.NoError(t, err)

	page, err := h.orders.ListMine(ctx, alice.UserID, services.OrderQuery{UserID: bob.UserID})
	require.NoError(t, err)
	assert.Equal(t, int64(12), page.TotalOrders, "user filter is ignored for ListMine")
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Orders, 10)
	assert.True(t, page.Orders[0].PurchasedAt.After(page.Orders[9].PurchasedAt), "newest first by default")
	require.NotNil(t, page.Orders[0].GiftCard)

	start := base.Add(2 * time.Hour)
	end := base.Add(4 * time.Hour)
	page, err = h.orders.ListMine(ctx, alice.UserID, services.OrderQuery{Start: &start, End: &end, Sort: "purchasedAt", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Orders, 3)
	assert.True(t, page.Orders[0].PurchasedAt.Equal(start))

	all, err := h.orders.ListAll(ctx, services.OrderQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(13), all.TotalOrders)
	assert.Len(t, all.Orders, 13, "admin page size defaults to 20")
	require.NotNil(t, all.Orders[0].User)

	onlyBob, err := h.orders.ListAll(ctx, services.OrderQuery{UserID: bob.UserID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), onlyBob.TotalOrders)

	_, err = h.orders.ListAll(ctx, services.OrderQuery{PaymentStatus: "lost"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestExportWritesWorkbook(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	card := h.card(t, "Amazon", "10", 10)
	buyer := h.user(t, "export@test.com", auth.RoleUser)
	for _, qty := range []int{2, 3, 1} {
		_, err := h.orders.PlaceOrder(ctx, buyer.UserID, services.PlaceOrderInput{GiftCardID: card.ID, Quantity: qty})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	n, err := h.orders.Export(ctx, services.OrderQuery{Sort: "quantity", Order: "asc"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")), "xlsx is a zip archive")

	book, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	rows := book.Sheets[0].Rows
	require.Len(t, rows, 4)
	var got []int
	for _, row := range rows[1:] {
		q, err := row.Cells[4].Int()
		require.NoError(t, err)
		got = append(got, q)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}
