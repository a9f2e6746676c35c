package core

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Pagination is a validated page request.
type Pagination struct {
	Page    int `json:"page" query:"page" validate:"gte=1"`
	PerPage int `json:"per_page" query:"per_page" validate:"gte=1,lte=100"`
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PerPage }
func (p Pagination) Limit() int  { return p.PerPage }

// Page is the paginated list envelope.
type Page struct {
	Items   interface{} `json:"items"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
	Pages   int         `json:"pages"`
}

func NewPage(items interface{}, total int, p Pagination) Page {
	pages := 0
	if p.PerPage > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return Page{Items: items, Total: total, Page: p.Page, PerPage: p.PerPage, Pages: pages}
}
