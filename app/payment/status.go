// Package payment models the offline payment lifecycle of an order: the
// status machine, payment methods and the reference codes buyers quote when
// they pay.
package payment

import (
	"fmt"

	"github.com/shashiranjanraj/giftkart/pkg/apperr"
)

// Status is the payment status of an order.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaymentReview  Status = "payment_review"
	StatusPaid           Status = "paid"
	StatusCancelled      Status = "cancelled"
)

// Event drives a status transition.
type Event string

const (
	EventSubmitProof Event = "submit_proof"
	EventApprove     Event = "approve"
	EventReject      Event = "reject"
	EventCancel      Event = "cancel"
)

type edge struct {
	from  Status
	event Event
}

// transitions is the complete table. Anything missing is rejected.
var transitions = map[edge]Status{
	{StatusPendingPayment, EventSubmitProof}: StatusPaymentReview,
	{StatusPaymentReview, EventSubmitProof}:  StatusPaymentReview,
	{StatusPaymentReview, EventApprove}:      StatusPaid,
	{StatusPaymentReview, EventReject}:       StatusPendingPayment,
	{StatusPendingPayment, EventCancel}:      StatusCancelled,
	{StatusPaymentReview, EventCancel}:       StatusCancelled,
}

// Next returns the status reached by applying ev to s, or an InvalidState
// error when the table has no such edge.
func Next(s Status, ev Event) (Status, error) {
	to, ok := transitions[edge{s, ev}]
	if !ok {
		return s, apperr.InvalidState("cannot %s an order whose payment is %s", describe(ev), s)
	}
	return to, nil
}

// Can reports whether ev is allowed from s.
func Can(s Status, ev Event) bool {
	_, ok := transitions[edge{s, ev}]
	return ok
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPaymentReview, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no event can leave s.
func (s Status) Terminal() bool {
	for e := range transitions {
		if e.from == s {
			return false
		}
	}
	return true
}

func describe(ev Event) string {
	switch ev {
	case EventSubmitProof:
		return "submit payment proof for"
	case EventApprove:
		return "approve"
	case EventReject:
		return "reject"
	case EventCancel:
		return "cancel"
	}
	return fmt.Sprintf("apply %q to", string(ev))
}
