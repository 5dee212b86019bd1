// Package orm holds query helpers shared by the repositories.
package orm

import (
	"math"
	"strings"

	"gorm.io/gorm"
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int   `json:"currentPage"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"totalPages"`
}

// NewPagination clamps page and limit. A non-positive limit becomes def,
// and limit never exceeds max.
func NewPagination(page, limit, def, max int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return Pagination{Page: page, Limit: limit}
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.Limit }

// Paginate counts the rows matched by q, then loads the requested page into
// dest with the given associations preloaded. q must already carry Model,
// filters and ordering.
func Paginate(q *gorm.DB, p *Pagination, dest interface{}, preloads ...string) error {
	if err := q.Session(&gorm.Session{}).Count(&p.Total).Error; err != nil {
		return err
	}
	p.Pages = int(math.Ceil(float64(p.Total) / float64(p.Limit)))

	page := q.Session(&gorm.Session{}).Offset(p.Offset()).Limit(p.Limit)
	for _, assoc := range preloads {
		page = page.Preload(assoc)
	}
	return page.Find(dest).Error
}

// OrderBy builds a safe ORDER BY clause from a whitelist of API field names
// to column names. Unknown fields fall back to def.
func OrderBy(field, dir string, allowed map[string]string, def string) string {
	col, ok := allowed[field]
	if !ok {
		col = def
	}
	if strings.EqualFold(dir, "asc") {
		return col + " ASC"
	}
	return col + " DESC"
}
