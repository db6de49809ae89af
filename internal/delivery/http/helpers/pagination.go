package helpers

import (
	"net/http"
	"net/url"
	"strconv"

	"invitehub/internal/domain"
)

// Pagination query parameter defaults and limits. These mirror the config
// defaults; the service layer re-clamps with its own configured values.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// ParsePagination reads page and page_size from the request query string and
// returns clamped domain.PaginationParams. Missing, malformed, or
// out-of-range values fall back to the defaults.
func ParsePagination(r *http.Request) domain.PaginationParams {
	q := r.URL.Query()
	params := domain.PaginationParams{
		Page:     intQueryParam(q, "page"),
		PageSize: intQueryParam(q, "page_size"),
	}
	return params.Clamped(DefaultPageSize, MaxPageSize)
}

// intQueryParam returns the named parameter as a positive int, or 0 so that
// Clamped substitutes the default.
func intQueryParam(q url.Values, key string) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// PaginationMeta is the pagination metadata included in paginated list responses.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationMeta builds PaginationMeta from the current page, page size, and total count.
// TotalPages is computed as ceiling(total / pageSize); if pageSize is 0, TotalPages is 0.
func NewPaginationMeta(page, pageSize, total int) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
