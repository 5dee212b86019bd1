// Package services holds the storefront's business rules. Services return
// apperr kinds; controllers map them to HTTP.
package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/pkg/apperr"
)

// Domain event names fired through pkg/event.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderProofUploaded = "order.proof_uploaded"
	EventOrderVerified      = "order.verified"
	EventOrderCancelled     = "order.cancelled"
)

// lookup maps a missing row to NotFound(msg) and anything else to Internal.
func lookup(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s", msg)
	}
	return apperr.Internal(err, msg)
}

// internal wraps an unexpected failure unless it already carries a kind.
func internal(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err, msg)
}
