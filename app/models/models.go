// Package models holds the GORM models persisted by giftkart.
package models

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{&User{}, &GiftCard{}, &Order{}, &Testimonial{}}
}
