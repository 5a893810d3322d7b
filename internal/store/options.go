package store

import (
	"fmt"

	"github.com/famtree/ledger-service/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// normalizeListOptions converts the API's page/pageSize pagination into a
// clamped LIMIT/OFFSET pair. Page numbers are 1-based.
func normalizeListOptions(opts domain.ListOptions) (limit, offset int) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}

// orderLimitOffset appends the trailing ORDER BY / LIMIT / OFFSET clause with
// positional placeholders starting at argPos.
func orderLimitOffset(orderBy string, argPos int) string {
	return fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", orderBy, argPos, argPos+1)
}
