package models

import "strconv"

// PaginationInfo represents pagination information for templates
type PaginationInfo struct {
	CurrentPage int
	PageSize    int
	TotalCount  int
	TotalPages  int
	HasNext     bool
	HasPrev     bool
	NextPage    int
	PrevPage    int
}

// NewPaginationInfo creates pagination info
func NewPaginationInfo(page, pageSize, totalCount int) *PaginationInfo {
	totalPages := (totalCount + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	return &PaginationInfo{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalCount:  totalCount,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
		NextPage:    page + 1,
		PrevPage:    page - 1,
	}
}

// Offset returns the row offset of the current page
func (p *PaginationInfo) Offset() int {
	return (p.CurrentPage - 1) * p.PageSize
}

// ResolvePage turns a raw page parameter into a valid page number.
// Non-numeric input yields page 1, numbers outside 1..last yield the last page.
func ResolvePage(raw string, pageSize, totalCount int) *PaginationInfo {
	last := NewPaginationInfo(1, pageSize, totalCount).TotalPages

	page := 1
	if raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			page = 1
		case n < 1 || n > last:
			page = last
		default:
			page = n
		}
	}
	return NewPaginationInfo(page, pageSize, totalCount)
}
