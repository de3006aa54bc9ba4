package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/concierge/pkg/query"
)

// ErrInvalidPage is returned for page or page_size values that are not integers.
var ErrInvalidPage = errors.New("invalid pagination parameter")

// PageRequest selects one page of a listing. Sort fields the listing
// does not map are ignored by the query builder.
type PageRequest struct {
	Page     int
	PageSize int
	Sort     []query.SortField
}

// Normalize clamps the request into the configured bounds.
func (r *PageRequest) Normalize(cfg Config) {
	r.Page = max(r.Page, 1)
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	r.PageSize = min(r.PageSize, cfg.MaxPageSize)
}

// Offset is the number of rows preceding the page.
func (r *PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// PageRequestFromQuery reads page, page_size, and sort from URL query values.
// Absent values take defaults; present values must be integers.
func PageRequestFromQuery(values url.Values, cfg Config) (PageRequest, error) {
	var req PageRequest

	for name, dst := range map[string]*int{"page": &req.Page, "page_size": &req.PageSize} {
		v := values.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return PageRequest{}, fmt.Errorf("%w: %s=%q", ErrInvalidPage, name, v)
		}
		*dst = n
	}
	req.Sort = query.ParseSortFields(values.Get("sort"))

	req.Normalize(cfg)
	return req, nil
}

// PageResult is one page of T with the totals needed to walk the rest.
type PageResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPageResult builds a PageResult. An empty listing still reports one page.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	pageSize = max(pageSize, 1)
	if data == nil {
		data = []T{}
	}

	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: max((total+pageSize-1)/pageSize, 1),
	}
}
