package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/giftkart/app/payment"
	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/ctx"
	"github.com/shashiranjanraj/giftkart/pkg/logger"
)

// formOverhead is allowed on top of the file size for multipart framing.
const formOverhead = 1 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderController struct {
	orders *services.OrderService
	proofs *services.ProofStore
	idem   *services.Idempotency
}

func NewOrderController(orders *services.OrderService, proofs *services.ProofStore, idem *services.Idempotency) *OrderController {
	return &OrderController{orders: orders, proofs: proofs, idem: idem}
}

// Place creates one order. Honors Idempotency-Key.
func (h *OrderController) Place(c *ctx.Context) {
	var in services.PlaceOrderInput
	if !c.BindJSON(&in) {
		return
	}
	h.idempotent(c, func() (any, error) {
		return h.orders.PlaceOrder(c.Context(), c.Principal().UserID, in)
	})
}

// Checkout places a whole cart atomically. Honors Idempotency-Key.
func (h *OrderController) Checkout(c *ctx.Context) {
	var in services.CheckoutInput
	if !c.BindJSON(&in) {
		return
	}
	h.idempotent(c, func() (any, error) {
		return h.orders.SimulateCheckout(c.Context(), c.Principal().UserID, in)
	})
}

// idempotent runs create and answers 201, replaying the stored response
// when the caller repeats an Idempotency-Key.
func (h *OrderController) idempotent(c *ctx.Context, create func() (any, error)) {
	key := c.Header("Idempotency-Key")
	userID := c.Principal().UserID

	replay, claimed, err := h.idem.Begin(c.Context(), userID, key)
	if err != nil {
		c.Fail(err)
		return
	}
	if replay != nil {
		c.SetHeader("Idempotent-Replayed", "true")
		c.Created(json.RawMessage(replay.Body))
		return
	}

	data, err := create()
	if err != nil {
		if claimed {
			h.idem.Abort(c.Context(), userID, key)
		}
		c.Fail(err)
		return
	}
	if claimed {
		h.idem.Complete(c.Context(), userID, key, http.StatusCreated, data)
	}
	c.Created(data)
}

// Mine lists the caller's orders.
func (h *OrderController) Mine(c *ctx.Context) {
	q, ok := orderQuery(c, false)
	if !ok {
		return
	}
	page, err := h.orders.ListMine(c.Context(), c.Principal().UserID, q)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(page)
}

// Index lists every order: ?user=&giftCard=&paymentStatus= on top of the
// common filters.
func (h *OrderController) Index(c *ctx.Context) {
	q, ok := orderQuery(c, true)
	if !ok {
		return
	}
	page, err := h.orders.ListAll(c.Context(), q)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(page)
}

// Export downloads the filtered orders as a spreadsheet.
func (h *OrderController) Export(c *ctx.Context) {
	q, ok := orderQuery(c, true)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if _, err := h.orders.Export(c.Context(), q, &buf); err != nil {
		c.Fail(err)
		return
	}
	name := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.SetHeader("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := c.Stream(http.StatusOK, xlsxContentType, &buf); err != nil {
		logger.WithCtx(c.Context()).Warn("orders: export write failed", "error", err)
	}
}

// UploadProof accepts multipart field "proof" and/or form field
// "transactionId".
func (h *OrderController) UploadProof(c *ctx.Context) {
	id, ok := c.ParamUint("orderId")
	if !ok {
		return
	}

	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, h.proofs.MaxBytes()+formOverhead)
	if err := c.R.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.Fail(apperr.PayloadTooLarge("File too large, max %d MB", h.proofs.MaxBytes()>>20))
			return
		}
		c.Fail(apperr.Validation("Malformed upload"))
		return
	}
	if c.R.MultipartForm != nil {
		defer c.R.MultipartForm.RemoveAll() //nolint:errcheck
	}

	in := services.ProofInput{TransactionID: c.FormValue("transactionId")}
	file, header, err := c.FormFile("proof")
	if err != nil {
		c.Fail(apperr.Validation("Malformed upload"))
		return
	}
	if file != nil {
		defer file.Close()
		in.File = &services.ProofUpload{
			Reader:   file,
			Size:     header.Size,
			Filename: header.Filename,
			Declared: header.Header.Get("Content-Type"),
		}
	}

	order, err := h.orders.UploadProof(c.Context(), c.Principal().UserID, id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(order)
}

// Proof streams the stored file, or returns the proof record when only a
// transaction id was submitted.
func (h *OrderController) Proof(c *ctx.Context) {
	id, ok := c.ParamUint("orderId")
	if !ok {
		return
	}
	proof, file, err := h.orders.OpenProof(c.Context(), c.Principal(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	if file == nil {
		c.Success(proof)
		return
	}
	defer file.Body.Close()

	c.SetHeader("Content-Disposition", `inline; filename="`+file.Name+`"`)
	c.SetHeader("X-Content-Type-Options", "nosniff")
	if err := c.Stream(http.StatusOK, file.ContentType, file.Body); err != nil {
		logger.WithCtx(c.Context()).Warn("orders: proof stream failed", "order_id", id, "error", err)
	}
}

func (h *OrderController) Verify(c *ctx.Context) {
	id, ok := c.ParamUint("orderId")
	if !ok {
		return
	}
	var in services.VerifyInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := h.orders.VerifyPayment(c.Context(), id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(order)
}

func (h *OrderController) Cancel(c *ctx.Context) {
	id, ok := c.ParamUint("orderId")
	if !ok {
		return
	}
	order, err := h.orders.Cancel(c.Context(), c.Principal(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(order)
}

// orderQuery reads the listing parameters. Dates are RFC 3339 or
// YYYY-MM-DD; a date-only endDate covers the whole day.
func orderQuery(c *ctx.Context, admin bool) (services.OrderQuery, bool) {
	q := services.OrderQuery{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 0),
		Sort:  c.Query("sort"),
		Order: c.Query("order"),
	}

	var err error
	if q.Start, err = parseDate(c.Query("startDate"), false); err != nil {
		c.Fail(apperr.Validation("Invalid startDate"))
		return q, false
	}
	if q.End, err = parseDate(c.Query("endDate"), true); err != nil {
		c.Fail(apperr.Validation("Invalid endDate"))
		return q, false
	}

	if admin {
		q.UserID = c.QueryUint("user")
		q.GiftCardID = c.QueryUint("giftCard")
		q.PaymentStatus = payment.Status(c.Query("paymentStatus"))
	}
	return q, true
}

func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
