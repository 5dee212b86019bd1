package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/app/payment"
	"github.com/shashiranjanraj/giftkart/app/repositories"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/auth"
	"github.com/shashiranjanraj/giftkart/pkg/event"
	"github.com/shashiranjanraj/giftkart/pkg/logger"
	"github.com/shashiranjanraj/giftkart/pkg/metrics"
	"github.com/shashiranjanraj/giftkart/pkg/orm"
	"github.com/shashiranjanraj/giftkart/pkg/workerpool"
)

const (
	referenceAttempts = 5
	expireBatch       = 200
	expireWorkers     = 4
)

// Verification decisions accepted by VerifyPayment.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Cancellation causes, used for metrics and event payloads.
const (
	CauseUser    = "user"
	CauseAdmin   = "admin"
	CauseExpired = "expired"
)

// PlaceOrderInput is one order request.
type PlaceOrderInput struct {
	GiftCardID    uint           `json:"giftCardId"    validate:"required"`
	Quantity      int            `json:"quantity"      validate:"required,gte=1"`
	PaymentMethod payment.Method `json:"paymentMethod" validate:"nullable,in=bank_transfer|mobile_wallet|whatsapp"`
}

// PlaceOrderResult is the created order plus what the buyer needs to pay.
type PlaceOrderResult struct {
	Order                models.Order `json:"order"`
	PaymentInstructions  string       `json:"paymentInstructions"`
	PaymentReferenceCode string       `json:"paymentReferenceCode"`
	PaymentDueDate       time.Time    `json:"paymentDueDate"`
	WhatsAppLink         string       `json:"whatsappLink,omitempty"`
}

// CheckoutItem is one cart line.
type CheckoutItem struct {
	GiftCardID uint `json:"giftCardId" validate:"required"`
	Quantity   int  `json:"quantity"   validate:"required,gte=1"`
}

// CheckoutInput is a whole simulated cart.
type CheckoutInput struct {
	Items         []CheckoutItem `json:"items"         validate:"required"`
	PaymentMethod payment.Method `json:"paymentMethod" validate:"nullable,in=bank_transfer|mobile_wallet|whatsapp"`
}

// CheckoutResult lists the orders created by a checkout.
type CheckoutResult struct {
	Orders []models.Order `json:"orders"`
}

// OrderQuery is a listing request. UserID, GiftCardID and PaymentStatus are
// only honoured for admin listings.
type OrderQuery struct {
	Page          int
	Limit         int
	Start         *time.Time
	End           *time.Time
	Sort          string
	Order         string
	UserID        uint
	GiftCardID    uint
	PaymentStatus payment.Status
}

// OrderPage is one page of orders.
type OrderPage struct {
	Orders      []models.Order `json:"orders"`
	TotalOrders int64          `json:"totalOrders"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
}

// ProofInput is a payment proof submission. File may be nil when only a
// transaction id is supplied.
type ProofInput struct {
	File          *ProofUpload
	TransactionID string
}

// VerifyInput is an admin payment decision.
type VerifyInput struct {
	Decision string `json:"decision" validate:"required,in=approved|rejected"`
	Note     string `json:"note"     validate:"nullable,max=500"`
}

// OrderEvent is the payload of every order.* event.
type OrderEvent struct {
	Order models.Order
	// Detail is the cancellation cause or the verification decision.
	Detail string
}

// OrderService runs the checkout and offline payment workflow.
type OrderService struct {
	db       *gorm.DB
	orders   *repositories.OrderRepository
	cards    *repositories.GiftCardRepository
	catalog  *GiftCardService
	proofs   *ProofStore
	events   *event.Dispatcher
	settings payment.Settings
	now      func() time.Time
}

// NewOrderService wires the workflow. events may be nil.
func NewOrderService(db *gorm.DB, catalog *GiftCardService, proofs *ProofStore, events *event.Dispatcher, settings payment.Settings) *OrderService {
	return &OrderService{
		db:       db,
		orders:   repositories.NewOrderRepository(db),
		cards:    repositories.NewGiftCardRepository(db),
		catalog:  catalog,
		proofs:   proofs,
		events:   events,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source.
func (s *OrderService) SetClock(now func() time.Time) { s.now = now }

// ── Placement ────────────────────────────────────────────────────────────────

// PlaceOrder reserves stock and creates the order in one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uint, in PlaceOrderInput) (PlaceOrderResult, error) {
	method, err := resolveMethod(in.PaymentMethod)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if in.Quantity < 1 {
		return PlaceOrderResult{}, apperr.Validation("Quantity must be at least 1")
	}

	now := s.now()
	var order models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.place(ctx, tx, userID, in.GiftCardID, in.Quantity, method, now)
		return err
	})
	if err != nil {
		s.rejected(err)
		return PlaceOrderResult{}, internal(err, "place order")
	}

	s.catalog.Invalidate(ctx, order.GiftCardID)
	metrics.OrdersPlaced.WithLabelValues(string(method)).Inc()
	s.events.Fire(ctx, EventOrderPlaced, OrderEvent{Order: order})

	return s.result(order), nil
}

// SimulateCheckout places every line or none. The first missing card or
// short line rolls back the whole cart.
func (s *OrderService) SimulateCheckout(ctx context.Context, userID uint, in CheckoutInput) (CheckoutResult, error) {
	method, err := resolveMethod(in.PaymentMethod)
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(in.Items) == 0 {
		return CheckoutResult{}, apperr.Validation("Cart is empty")
	}
	for i, item := range in.Items {
		if item.Quantity < 1 {
			return CheckoutResult{}, apperr.Validation("Item %d: quantity must be at least 1", i+1)
		}
	}

	now := s.now()
	orders := make([]models.Order, 0, len(in.Items))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range in.Items {
			o, err := s.place(ctx, tx, userID, item.GiftCardID, item.Quantity, method, now)
			if err != nil {
				return err
			}
			orders = append(orders, o)
		}
		return nil
	})
	if err != nil {
		s.rejected(err)
		return CheckoutResult{}, internal(err, "checkout")
	}

	ids := make([]uint, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.GiftCardID)
		metrics.OrdersPlaced.WithLabelValues(string(method)).Inc()
		s.events.Fire(ctx, EventOrderPlaced, OrderEvent{Order: o})
	}
	s.catalog.Invalidate(ctx, ids...)

	return CheckoutResult{Orders: orders}, nil
}

// place runs inside tx: it takes stock with a conditional update and writes
// the order with a fresh reference code.
func (s *OrderService) place(ctx context.Context, tx *gorm.DB, userID, cardID uint, qty int, method payment.Method, now time.Time) (models.Order, error) {
	cards := s.cards.WithTx(tx)
	orders := s.orders.WithTx(tx)

	card, err := cards.FindByID(ctx, cardID)
	if err != nil {
		return models.Order{}, lookup(err, "Gift card not found")
	}

	ok, err := cards.DecrementStock(ctx, cardID, qty)
	if err != nil {
		return models.Order{}, apperr.Internal(err, "reserve stock")
	}
	if !ok {
		return models.Order{}, apperr.InsufficientStock("Insufficient stock")
	}

	ref, err := uniqueReference(ctx, orders, now)
	if err != nil {
		return models.Order{}, err
	}

	due := s.settings.DueDate(now)
	order := models.Order{
		UserID:               userID,
		GiftCardID:           card.ID,
		Brand:                card.Brand,
		ImageURL:             card.ImageURL,
		UnitPrice:            card.Price,
		Quantity:             qty,
		TotalPrice:           card.Price.Mul(decimal.NewFromInt(int64(qty))).Round(2),
		Status:               models.OrderPending,
		PaymentMethod:        method,
		PaymentStatus:        payment.StatusPendingPayment,
		PaymentReferenceCode: ref,
		PaymentDueDate:       &due,
		PurchasedAt:          now,
	}
	if err := orders.Create(ctx, &order); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Order{}, apperr.Conflict("Could not allocate a payment reference, please retry")
		}
		return models.Order{}, apperr.Internal(err, "create order")
	}
	return order, nil
}

func uniqueReference(ctx context.Context, orders *repositories.OrderRepository, now time.Time) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		ref := payment.NewReference(now)
		taken, err := orders.ReferenceExists(ctx, ref)
		if err != nil {
			return "", apperr.Internal(err, "check reference")
		}
		if !taken {
			return ref, nil
		}
	}
	return "", apperr.Conflict("Could not allocate a payment reference, please retry")
}

func resolveMethod(m payment.Method) (payment.Method, error) {
	if m == "" {
		return payment.MethodBankTransfer, nil
	}
	if !m.Valid() {
		return "", apperr.Validation("Unsupported payment method %q", string(m))
	}
	return m, nil
}

func (s *OrderService) result(o models.Order) PlaceOrderResult {
	res := PlaceOrderResult{
		Order:                o,
		PaymentInstructions:  s.settings.Instructions(o.PaymentMethod, o.PaymentReferenceCode, o.TotalPrice),
		PaymentReferenceCode: o.PaymentReferenceCode,
	}
	if o.PaymentDueDate != nil {
		res.PaymentDueDate = *o.PaymentDueDate
	}
	if o.PaymentMethod == payment.MethodWhatsApp {
		res.WhatsAppLink = s.settings.WhatsAppLink(o.PaymentReferenceCode, o.TotalPrice)
	}
	return res
}

func (s *OrderService) rejected(err error) {
	switch apperr.KindOf(err) {
	case apperr.KindInsufficientStock:
		metrics.OrdersRejected.WithLabelValues("insufficient_stock").Inc()
	case apperr.KindNotFound:
		metrics.OrdersRejected.WithLabelValues("not_found").Inc()
	}
}

// ── Listings ─────────────────────────────────────────────────────────────────

// ListMine returns the buyer's own orders. Admin-only filters are ignored.
func (s *OrderService) ListMine(ctx context.Context, userID uint, q OrderQuery) (OrderPage, error) {
	f := repositories.OrderFilter{UserID: userID, Start: q.Start, End: q.End, Sort: q.Sort, Order: q.Order}
	return s.list(ctx, f, orm.NewPagination(q.Page, q.Limit, 10, 100))
}

// ListAll returns every order, with the admin filters applied.
func (s *OrderService) ListAll(ctx context.Context, q OrderQuery) (OrderPage, error) {
	if q.PaymentStatus != "" && !q.PaymentStatus.Valid() {
		return OrderPage{}, apperr.Validation("Unknown payment status %q", string(q.PaymentStatus))
	}
	return s.list(ctx, filterOf(q), orm.NewPagination(q.Page, q.Limit, 20, 100))
}

func (s *OrderService) list(ctx context.Context, f repositories.OrderFilter, p orm.Pagination) (OrderPage, error) {
	orders, err := s.orders.List(ctx, f, &p)
	if err != nil {
		return OrderPage{}, apperr.Internal(err, "list orders")
	}
	return OrderPage{Orders: orders, TotalOrders: p.Total, TotalPages: p.Pages, CurrentPage: p.Page}, nil
}

func filterOf(q OrderQuery) repositories.OrderFilter {
	return repositories.OrderFilter{
		UserID:        q.UserID,
		GiftCardID:    q.GiftCardID,
		PaymentStatus: q.PaymentStatus,
		Start:         q.Start,
		End:           q.End,
		Sort:          q.Sort,
		Order:         q.Order,
	}
}

// Get loads one order for actor, who must own it or be an admin.
func (s *OrderService) Get(ctx context.Context, actor auth.Principal, id uint) (models.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return models.Order{}, lookup(err, "Order not found")
	}
	if !actor.CanAccess(o.UserID) {
		return models.Order{}, apperr.Forbidden("Not authorized to view this order")
	}
	return o, nil
}

// ── Payment proof ────────────────────────────────────────────────────────────

// UploadProof attaches a file and/or transaction id and moves the order into
// review. A replaced proof file is deleted.
func (s *OrderService) UploadProof(ctx context.Context, userID, orderID uint, in ProofInput) (models.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return models.Order{}, lookup(err, "Order not found")
	}
	if o.UserID != userID {
		return models.Order{}, apperr.Forbidden("Not authorized to upload proof for this order")
	}
	if in.File == nil && in.TransactionID == "" {
		return models.Order{}, apperr.Validation("Provide a proof file or a transaction ID")
	}
	to, err := payment.Next(o.PaymentStatus, payment.EventSubmitProof)
	if err != nil {
		return models.Order{}, err
	}

	now := s.now()
	proof := o.PaymentProof
	proof.UploadedAt = &now
	if in.TransactionID != "" {
		proof.TransactionID = in.TransactionID
	}
	var stored StoredProof
	if in.File != nil {
		stored, err = s.proofs.Save(ctx, *in.File)
		if err != nil {
			return models.Order{}, err
		}
		proof.File = stored.Path
		proof.ContentType = stored.ContentType
	}

	ok, err := s.orders.Transition(ctx, o.ID, o.PaymentStatus, map[string]interface{}{
		"payment_status":               to,
		"payment_proof_file":           proof.File,
		"payment_proof_content_type":   proof.ContentType,
		"payment_proof_transaction_id": proof.TransactionID,
		"payment_proof_uploaded_at":    proof.UploadedAt,
	})
	if err != nil || !ok {
		s.proofs.Delete(ctx, stored.Path)
		if err != nil {
			return models.Order{}, apperr.Internal(err, "save payment proof")
		}
		return models.Order{}, apperr.InvalidState("Order changed while uploading, please retry")
	}
	if stored.Path != "" && o.PaymentProof.File != "" && o.PaymentProof.File != stored.Path {
		s.proofs.Delete(ctx, o.PaymentProof.File)
	}

	o.PaymentStatus = to
	o.PaymentProof = proof
	metrics.ProofsUploaded.Inc()
	s.events.Fire(ctx, EventOrderProofUploaded, OrderEvent{Order: o})
	return o, nil
}

// ProofFile is a stored proof opened for streaming.
type ProofFile struct {
	Body        io.ReadCloser
	ContentType string
	Name        string
}

// OpenProof returns the order's proof for its owner or an admin. Orders
// with only a transaction id come back with a nil Body.
func (s *OrderService) OpenProof(ctx context.Context, actor auth.Principal, orderID uint) (models.PaymentProof, *ProofFile, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return models.PaymentProof{}, nil, lookup(err, "Order not found")
	}
	if !actor.CanAccess(o.UserID) {
		return models.PaymentProof{}, nil, apperr.Forbidden("Not authorized to view this payment proof")
	}
	if !o.PaymentProof.Present() {
		return models.PaymentProof{}, nil, apperr.NotFound("No payment proof uploaded for this order")
	}
	if o.PaymentProof.File == "" {
		return o.PaymentProof, nil, nil
	}

	body, err := s.proofs.Open(ctx, o.PaymentProof.File)
	if err != nil {
		return models.PaymentProof{}, nil, err
	}
	ct := o.PaymentProof.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return o.PaymentProof, &ProofFile{Body: body, ContentType: ct, Name: baseName(o.PaymentProof.File)}, nil
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

// ── Admin decisions ──────────────────────────────────────────────────────────

// VerifyPayment approves or rejects an order in review.
func (s *OrderService) VerifyPayment(ctx context.Context, orderID uint, in VerifyInput) (models.Order, error) {
	var ev payment.Event
	switch in.Decision {
	case DecisionApproved:
		ev = payment.EventApprove
	case DecisionRejected:
		ev = payment.EventReject
	default:
		return models.Order{}, apperr.Validation("Decision must be approved or rejected")
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return models.Order{}, lookup(err, "Order not found")
	}
	to, err := payment.Next(o.PaymentStatus, ev)
	if err != nil {
		return models.Order{}, err
	}

	updates := map[string]interface{}{
		"payment_status":    to,
		"verification_note": in.Note,
	}
	now := s.now()
	switch ev {
	case payment.EventApprove:
		updates["paid_at"] = now
		updates["status"] = models.OrderCompleted
		o.PaidAt = &now
		o.Status = models.OrderCompleted
	case payment.EventReject:
		// The buyer gets a fresh window to pay again; a review that ran past
		// the original deadline must not hand the order to the expiry task.
		due := s.settings.DueDate(now)
		updates["payment_due_date"] = due
		o.PaymentDueDate = &due
	}

	ok, err := s.orders.Transition(ctx, o.ID, o.PaymentStatus, updates)
	if err != nil {
		return models.Order{}, apperr.Internal(err, "verify payment")
	}
	if !ok {
		return models.Order{}, apperr.InvalidState("Order changed while verifying, please retry")
	}

	o.PaymentStatus = to
	o.VerificationNote = in.Note
	metrics.PaymentsVerified.WithLabelValues(in.Decision).Inc()
	s.events.Fire(ctx, EventOrderVerified, OrderEvent{Order: o, Detail: in.Decision})
	return o, nil
}

// Cancel cancels an unpaid order for its owner or an admin and returns the
// reserved stock.
func (s *OrderService) Cancel(ctx context.Context, actor auth.Principal, orderID uint) (models.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return models.Order{}, lookup(err, "Order not found")
	}
	if !actor.CanAccess(o.UserID) {
		return models.Order{}, apperr.Forbidden("Not authorized to cancel this order")
	}
	cause := CauseUser
	if actor.IsAdmin() && actor.UserID != o.UserID {
		cause = CauseAdmin
	}
	return s.cancel(ctx, o, cause)
}

func (s *OrderService) cancel(ctx context.Context, o models.Order, cause string) (models.Order, error) {
	to, err := payment.Next(o.PaymentStatus, payment.EventCancel)
	if err != nil {
		return models.Order{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).Transition(ctx, o.ID, o.PaymentStatus, map[string]interface{}{
			"payment_status": to,
			"status":         models.OrderCancelled,
		})
		if err != nil {
			return apperr.Internal(err, "cancel order")
		}
		if !ok {
			return apperr.InvalidState("Order changed while cancelling, please retry")
		}
		if err := s.cards.WithTx(tx).IncrementStock(ctx, o.GiftCardID, o.Quantity); err != nil {
			return apperr.Internal(err, "restore stock")
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	s.catalog.Invalidate(ctx, o.GiftCardID)
	o.PaymentStatus = to
	o.Status = models.OrderCancelled
	metrics.OrdersCancelled.WithLabelValues(cause).Inc()
	s.events.Fire(ctx, EventOrderCancelled, OrderEvent{Order: o, Detail: cause})
	return o, nil
}

// ExpireOverdue cancels unpaid orders past their due date and returns how
// many were cancelled. Orders that moved on concurrently are skipped.
func (s *OrderService) ExpireOverdue(ctx context.Context) (int, error) {
	pool := workerpool.New(expireWorkers)
	defer pool.Shutdown()

	var expired atomic.Int64
	for {
		batch, err := s.orders.Overdue(ctx, s.now(), expireBatch)
		if err != nil {
			return int(expired.Load()), apperr.Internal(err, "load overdue orders")
		}
		if len(batch) == 0 {
			return int(expired.Load()), nil
		}

		before := expired.Load()
		done := make(chan struct{}, len(batch))
		for _, o := range batch {
			o := o // per-iteration copy (go 1.21 loop semantics)
			err := pool.SubmitWait(ctx, func() {
				defer func() { done <- struct{}{} }()
				if _, err := s.cancel(ctx, o, CauseExpired); err != nil {
					logger.WithCtx(ctx).Warn("orders: expiry skipped", "order_id", o.ID, "error", err)
					return
				}
				expired.Add(1)
			})
			if err != nil {
				return int(expired.Load()), err
			}
		}
		for range batch {
			<-done
		}

		// Nothing moved: the rest of the batch keeps failing, stop here.
		if expired.Load() == before || len(batch) < expireBatch {
			return int(expired.Load()), nil
		}
	}
}

// ── Export ───────────────────────────────────────────────────────────────────

var exportHeaders = []string{
	"Reference", "User", "Email", "Brand", "Quantity", "Unit price", "Total",
	"Status", "Payment method", "Payment status", "Purchased at", "Due", "Paid at",
}

// Export writes the filtered orders to w as an xlsx workbook.
func (s *OrderService) Export(ctx context.Context, q OrderQuery, w io.Writer) (int, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return 0, apperr.Internal(err, "create sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}

	rows := 0
	err = s.orders.All(ctx, filterOf(q), func(batch []models.Order) error {
		for _, o := range batch {
			row := sheet.AddRow()
			row.AddCell().SetValue(o.PaymentReferenceCode)
			name, email := "", ""
			if o.User != nil {
				name, email = o.User.Name, o.User.Email
			}
			row.AddCell().SetValue(name)
			row.AddCell().SetValue(email)
			row.AddCell().SetValue(o.Brand)
			row.AddCell().SetInt(o.Quantity)
			row.AddCell().SetValue(o.UnitPrice.StringFixed(2))
			row.AddCell().SetValue(o.TotalPrice.StringFixed(2))
			row.AddCell().SetValue(o.Status)
			row.AddCell().SetValue(string(o.PaymentMethod))
			row.AddCell().SetValue(string(o.PaymentStatus))
			row.AddCell().SetValue(o.PurchasedAt.Format(time.RFC3339))
			row.AddCell().SetValue(formatOptional(o.PaymentDueDate))
			row.AddCell().SetValue(formatOptional(o.PaidAt))
			rows++
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Internal(err, "load orders for export")
	}

	if err := file.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return rows, nil
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
