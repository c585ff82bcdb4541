package models

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest selects one page of a listing (1-based)
type PageRequest struct {
	PageNum  int
	PageSize int
}

// Normalize clamps the request to valid bounds
func (p PageRequest) Normalize() PageRequest {
	if p.PageNum < 1 {
		p.PageNum = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset of the page
func (p PageRequest) Offset() int {
	return (p.PageNum - 1) * p.PageSize
}

// PagedResult is one page of T plus the total row count
type PagedResult[T any] struct {
	Items    []T   `json:"result"`
	Total    int64 `json:"total_num"`
	PageNum  int   `json:"page_index"`
	PageSize int   `json:"page_size"`
}
