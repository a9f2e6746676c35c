package echoapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/filter"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindPagination reads `page` and `per_page` from the query. Out of range values are validation errors.
func bindPagination(ctx echo.Context, validate *validator.Validate) (core.Pagination, error) {
	page := core.Pagination{Page: 1, PerPage: core.DefaultPerPage}
	if err := bindQueryInt(ctx, "page", &page.Page); err != nil {
		return page, err
	}
	if err := bindQueryInt(ctx, "per_page", &page.PerPage); err != nil {
		return page, err
	}
	return page, validate.Struct(page)
}

func bindQueryInt(ctx echo.Context, name string, dst *int) error {
	s := ctx.QueryParam(name)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return core.NewFieldError(name, "must be an integer")
	}
	*dst = n
	return nil
}

// requestFilter reads the query parameters of the request.
func requestFilter(ctx echo.Context) *filter.Filter {
	return filter.FromValues(ctx.QueryParams())
}

// setPageLinks sets the Link header with the next and prev pages of a list.
func setPageLinks(ctx echo.Context, f *filter.Filter, page core.Page) {
	var links []string
	link := func(n int, rel string) string {
		return fmt.Sprintf("<%s?%s>; rel=%q", ctx.Request().URL.Path, f.WithPage(n).Encode(), rel)
	}
	if page.Page < page.Pages {
		links = append(links, link(page.Page+1, "next"))
	}
	if page.Page > 1 && page.Pages > 0 {
		links = append(links, link(page.Page-1, "prev"))
	}
	if len(links) > 0 {
		ctx.Response().Header().Set("Link", strings.Join(links, ", "))
	}
}

func paramID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}
