package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core/dashboard"
)

// bindQuery reads the list query params (?search=&page=&page_size=) whatever the method.
func bindQuery(ctx echo.Context) (dashboard.Query, error) {
	var q dashboard.Query
	err := echo.QueryParamsBinder(ctx).
		String("search", &q.Search).
		Int("page", &q.Page).
		Int("page_size", &q.PageSize).
		BindError()
	return q, errors.Wrap(err, "binding to Query")
}
