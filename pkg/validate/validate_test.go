package validate_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/giftkart/pkg/validate"
)

type registerInput struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"    validate:"nullable,max=30"`
}

type giftCardInput struct {
	Brand *string          `json:"brand" validate:"nullable,min=1"`
	Price *decimal.Decimal `json:"price" validate:"nullable,gte=0"`
	Stock *int             `json:"stock" validate:"nullable,gte=0"`
}

type reviewInput struct {
	Rating   int    `json:"rating"   validate:"required,between=1|5"`
	Decision string `json:"decision" validate:"required,in=approved|rejected"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(registerInput{
		Name:     "Jane",
		Email:    "jane@example.com",
		Password: "secret1",
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(registerInput{})
	for _, f := range []string{"name", "email", "password"} {
		if _, ok := errs[f]; !ok {
			t.Errorf("expected %s to be required", f)
		}
	}
	if _, ok := errs["phone"]; ok {
		t.Error("phone is nullable")
	}
}

func TestEmailAndMin(t *testing.T) {
	errs := validate.Struct(registerInput{Name: "J", Email: "not-an-email", Password: "123"})
	if _, ok := errs["email"]; !ok {
		t.Error("expected email error")
	}
	if _, ok := errs["password"]; !ok {
		t.Error("expected password min error")
	}
}

func TestPointerFieldsAreOptional(t *testing.T) {
	if errs := validate.Struct(giftCardInput{}); validate.HasErrors(errs) {
		t.Errorf("expected no errors for empty partial update, got %v", errs)
	}

	neg := -1
	price := decimal.NewFromInt(-5)
	errs := validate.Struct(&giftCardInput{Stock: &neg, Price: &price})
	if _, ok := errs["stock"]; !ok {
		t.Error("expected stock error")
	}
	if _, ok := errs["price"]; !ok {
		t.Error("expected price error")
	}

	zero := 0
	if errs := validate.Struct(giftCardInput{Stock: &zero}); validate.HasErrors(errs) {
		t.Errorf("zero stock is allowed, got %v", errs)
	}
}

func TestBetweenAndIn(t *testing.T) {
	errs := validate.Struct(reviewInput{Rating: 6, Decision: "maybe"})
	if _, ok := errs["rating"]; !ok {
		t.Error("expected rating out of range")
	}
	if _, ok := errs["decision"]; !ok {
		t.Error("expected decision error")
	}

	if errs := validate.Struct(reviewInput{Rating: 5, Decision: "approved"}); validate.HasErrors(errs) {
		t.Errorf("expected no errors, got %v", errs)
	}
}
