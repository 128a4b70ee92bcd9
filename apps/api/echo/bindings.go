package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Raw       string
	Orderings []core.DBOrdering
}

// Bind reads the `ordering` query param, e.g. ?ordering=-createdAt,code
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	ord.Raw = val
	ord.Orderings = core.ParseOrderings(val)
}
