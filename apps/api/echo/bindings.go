package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/darasa-lms/darasa/core"
)

const (
	orderingParam = "ordering"
	pageParam     = "page"
	pageSizeParam = "page_size"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindPagination reads page and page_size; bad values fall back to the defaults.
func bindPagination(ctx echo.Context) core.Pagination {
	var page core.Pagination
	if v, err := strconv.Atoi(ctx.QueryParam(pageParam)); err == nil {
		page.Page = v
	}
	if v, err := strconv.Atoi(ctx.QueryParam(pageSizeParam)); err == nil {
		page.PageSize = v
	}
	page.Clean()
	return page
}

// bindQueryBool reads an optional boolean query param.
func bindQueryBool(ctx echo.Context, name string) *bool {
	b, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &b
}
