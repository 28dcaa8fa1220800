package domain

// Pagination describes where a page sits in the full filtered result.
type Pagination struct {
	CurrentPage int
	PageSize    int
	TotalPages  int
	TotalCount  int64
	HasNext     bool
	HasPrev     bool
}

// NewPagination derives the metadata from the requested window and the filtered total.
func NewPagination(page, pageSize int, totalCount int64) Pagination {
	p := Pagination{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalCount:  totalCount,
		HasPrev:     page > 1,
	}
	if pageSize > 0 && totalCount > 0 {
		size := int64(pageSize)
		pages := totalCount / size
		if totalCount%size != 0 {
			pages++
		}
		p.TotalPages = int(pages)
		p.HasNext = int64(page) < pages
	}
	return p
}

// Page is an ordered window of projected entities.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}
