package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core/enroll"
)

type enrollApi struct {
	svc *enroll.Service
}

func registerEnrollAPI(g *echo.Group, api enrollApi) {
	eg := g.Group("/enroll")
	eg.GET("", api.open)
	eg.DELETE("", api.reset)
	eg.PUT("/draft", api.update)
	eg.POST("/next", api.fire(enroll.Next))
	eg.POST("/back", api.fire(enroll.Back))
	eg.POST("/checkout", api.checkout)
	eg.POST("/callback", api.callback)
}

func (api enrollApi) open(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Open(ctx.Request().Context(), contextSID(ctx), studentID(ctx)))
}

func (api enrollApi) reset(ctx echo.Context) error {
	sid := contextSID(ctx)
	api.svc.Reset(sid)
	return ctx.JSON(http.StatusOK, api.svc.Open(ctx.Request().Context(), sid, studentID(ctx)))
}

func (api enrollApi) update(ctx echo.Context) error {
	var data enroll.DraftUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DraftUpdate")
	}
	view, err := api.svc.Update(ctx.Request().Context(), contextSID(ctx), studentID(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, view)
}

// fire answers a refused move with the unchanged view and its notice.
func (api enrollApi) fire(event enroll.Event) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		view, err := api.svc.Fire(ctx.Request().Context(), contextSID(ctx), studentID(ctx), event)
		if _, ok := err.(*enroll.BlockedError); ok {
			return ctx.JSON(http.StatusUnprocessableEntity, view)
		} else if err != nil {
			return errors.Wrapf(err, "firing %s", event)
		}
		return ctx.JSON(http.StatusOK, view)
	}
}

func (api enrollApi) checkout(ctx echo.Context) error {
	res, err := api.svc.Checkout(ctx.Request().Context(), contextSID(ctx), contextIdentity(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api enrollApi) callback(ctx echo.Context) error {
	var data enroll.Callback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Callback")
	}
	reqCtx := ctx.Request().Context()
	token, _, err := contextSession(ctx).Token(reqCtx)
	if err != nil {
		return errors.Wrap(err, "reading token")
	}
	res, err := api.svc.Complete(reqCtx, contextSID(ctx), contextIdentity(ctx), token, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func studentID(ctx echo.Context) string {
	if id := contextIdentity(ctx); id != nil {
		return id.ID
	}
	return ""
}
