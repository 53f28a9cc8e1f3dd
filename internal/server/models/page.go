package models

import (
	"math"

	"github.com/dmitrijs2005/gophchat/internal/common"
)

// SortOrder is the direction of a listing by creation time.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder treats anything other than "asc" as descending.
func ParseSortOrder(s string) SortOrder {
	if SortOrder(s) == SortAsc {
		return SortAsc
	}
	return SortDesc
}

// Page is a 1-based pagination cursor.
type Page struct {
	Page     int
	PageSize int
}

// Normalize fills in defaults and clamps out-of-range values:
// page < 1 becomes 1, pageSize < 1 becomes the default and pageSize is
// capped at common.MaxPageSize. Page is capped so Offset cannot overflow.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = common.DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = common.DefaultPageSize
	}
	if p.PageSize > common.MaxPageSize {
		p.PageSize = common.MaxPageSize
	}
	if maxPage := math.MaxInt / p.PageSize; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

// Offset is the number of rows skipped before this page. It saturates at
// math.MaxInt instead of overflowing.
func (p Page) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// TotalPages returns ceil(total/pageSize); zero rows give zero pages.
func (p Page) TotalPages(total int) int {
	if total <= 0 || p.PageSize <= 0 {
		return 0
	}
	return (total + p.PageSize - 1) / p.PageSize
}
