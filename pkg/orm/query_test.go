package orm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/giftkart/pkg/orm"
)

func TestNewPaginationClamps(t *testing.T) {
	p := orm.NewPagination(0, 0, 10, 100)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 0, p.Offset())

	p = orm.NewPagination(3, 500, 10, 100)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 200, p.Offset())
}

func TestOrderByWhitelist(t *testing.T) {
	allowed := map[string]string{"purchasedAt": "purchased_at", "totalPrice": "total_price"}

	assert.Equal(t, "total_price ASC", orm.OrderBy("totalPrice", "asc", allowed, "purchased_at"))
	assert.Equal(t, "purchased_at DESC", orm.OrderBy("purchasedAt", "", allowed, "purchased_at"))
	assert.Equal(t, "purchased_at DESC", orm.OrderBy("id; DROP TABLE orders", "desc", allowed, "purchased_at"))
}
