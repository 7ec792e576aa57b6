package domain

// Page size bounds for paged remote listings such as "media depicting Q146".
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PaginationParams selects one page of a listing. Page is 1-indexed.
type PaginationParams struct {
	Page  int
	Limit int
}

// NewPaginationParams turns optional ?page= and ?limit= values into a page
// selection. Missing or non-positive values use page 1 and DefaultPageLimit;
// larger limits are clamped to MaxPageLimit.
func NewPaginationParams(page, limit *int) PaginationParams {
	p := PaginationParams{Page: 1, Limit: DefaultPageLimit}
	if page != nil && *page > 0 {
		p.Page = *page
	}
	if limit != nil && *limit > 0 {
		p.Limit = min(*limit, MaxPageLimit)
	}
	return p
}

// Offset is the number of results that precede this page, the value the
// search API takes as sroffset.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}
