package payment

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"
)

// ReferencePattern matches every generated reference code.
var ReferencePattern = regexp.MustCompile(`^ORD-\d{14}-\d{4}$`)

// NewReference returns ORD-<UTC yyyyMMddHHmmss>-<1000..9999>. Uniqueness is
// enforced by the caller against the orders table.
func NewReference(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%d", now.UTC().Format("20060102150405"), 1000+rand.Intn(9000))
}
