package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortAsc, ParseSortOrder("asc"))
	assert.Equal(t, SortDesc, ParseSortOrder("desc"))
	assert.Equal(t, SortDesc, ParseSortOrder(""))
	assert.Equal(t, SortDesc, ParseSortOrder("ASC"))
	assert.Equal(t, SortDesc, ParseSortOrder("sideways"))
}

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Page
		want Page
	}{
		{name: "zero value gets defaults", in: Page{}, want: Page{Page: 1, PageSize: 20}},
		{name: "negative page", in: Page{Page: -3, PageSize: 5}, want: Page{Page: 1, PageSize: 5}},
		{name: "oversized page size", in: Page{Page: 2, PageSize: 1000}, want: Page{Page: 2, PageSize: 100}},
		{name: "valid values kept", in: Page{Page: 4, PageSize: 7}, want: Page{Page: 4, PageSize: 7}},
		{name: "huge page capped", in: Page{Page: math.MaxInt, PageSize: 100}, want: Page{Page: math.MaxInt / 100, PageSize: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestPage_OffsetAndTotalPages(t *testing.T) {
	p := Page{Page: 3, PageSize: 2}
	assert.Equal(t, 4, p.Offset())

	assert.Equal(t, 0, p.TotalPages(0))
	assert.Equal(t, 1, p.TotalPages(1))
	assert.Equal(t, 1, p.TotalPages(2))
	assert.Equal(t, 3, p.TotalPages(5))
	assert.Equal(t, 3, p.TotalPages(6))
}

func TestPage_OffsetDoesNotOverflow(t *testing.T) {
	assert.Equal(t, math.MaxInt, Page{Page: math.MaxInt64/100 + 2, PageSize: 100}.Offset())
	assert.Equal(t, 0, Page{Page: 0, PageSize: 10}.Offset())

	n := Page{Page: math.MaxInt, PageSize: 100}.Normalize()
	assert.GreaterOrEqual(t, n.Offset(), 0)
}
