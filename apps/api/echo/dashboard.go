package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core/backend"
	"github.com/trezcool/tutorhub/core/dashboard"
)

// bodyBinder keeps path & query params out of the free-form records.
var bodyBinder = new(echo.DefaultBinder)

type dashboardApi struct {
	svc *dashboard.Service
}

func registerDashboardAPI(g *echo.Group, api dashboardApi) {
	dg := g.Group("/api")
	dg.GET("", api.resources)
	dg.GET("/:resource", api.list)
	dg.POST("/:resource", api.create)
	dg.GET("/:resource/:id", api.retrieve)
	dg.PUT("/:resource/:id", api.update)
	dg.DELETE("/:resource/:id", api.destroy)
}

// token is present: the guard refused the request otherwise.
func (api dashboardApi) token(ctx echo.Context) (string, error) {
	token, _, err := contextSession(ctx).Token(ctx.Request().Context())
	return token, errors.Wrap(err, "reading token")
}

func (api dashboardApi) resources(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Resources(contextSession(ctx).Role()))
}

func (api dashboardApi) list(ctx echo.Context) error {
	q, err := bindQuery(ctx)
	if err != nil {
		return err
	}
	token, err := api.token(ctx)
	if err != nil {
		return err
	}
	page, err := api.svc.List(ctx.Request().Context(), contextSession(ctx).Role(), token, ctx.Param("resource"), q)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api dashboardApi) retrieve(ctx echo.Context) error {
	token, err := api.token(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.Get(ctx.Request().Context(), contextSession(ctx).Role(), token, ctx.Param("resource"), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api dashboardApi) create(ctx echo.Context) error {
	var body backend.Record
	if err := bodyBinder.BindBody(ctx, &body); err != nil {
		return errors.Wrap(err, "binding to Record")
	}
	q, err := bindQuery(ctx)
	if err != nil {
		return err
	}
	token, err := api.token(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.Create(ctx.Request().Context(), contextSession(ctx).Role(), token, ctx.Param("resource"), body, q)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api dashboardApi) update(ctx echo.Context) error {
	var body backend.Record
	if err := bodyBinder.BindBody(ctx, &body); err != nil {
		return errors.Wrap(err, "binding to Record")
	}
	q, err := bindQuery(ctx)
	if err != nil {
		return err
	}
	token, err := api.token(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.Update(ctx.Request().Context(), contextSession(ctx).Role(), token, ctx.Param("resource"), ctx.Param("id"), body, q)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api dashboardApi) destroy(ctx echo.Context) error {
	q, err := bindQuery(ctx)
	if err != nil {
		return err
	}
	token, err := api.token(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.Delete(ctx.Request().Context(), contextSession(ctx).Role(), token, ctx.Param("resource"), ctx.Param("id"), q)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}
