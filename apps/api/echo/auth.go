package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/account"
	"github.com/trezcool/tutorhub/core/enroll"
	"github.com/trezcool/tutorhub/core/session"
)

type (
	authApi struct {
		svc       *account.Service
		enrollSvc *enroll.Service
	}

	authResponse struct {
		Identity *session.Identity `json:"identity,omitempty"`
		Notice   *core.Notice      `json:"notice,omitempty"`
		Redirect string            `json:"redirect,omitempty"`
	}
)

// registerAuthAPI wires the auth endpoints of one role. Only the paths the role declares public
// are reachable without a session: the admin has no registration nor password recovery.
func registerAuthAPI(g *echo.Group, rc session.RoleConfig, api authApi) {
	prefix := "/" + string(rc.Role)

	g.POST("/login", api.login)
	if rc.IsPublic(prefix + "/register") {
		g.POST("/register", api.register)
	}
	if rc.IsPublic(prefix + "/forgot-password") {
		g.POST("/forgot-password", api.forgotPassword)
	}
	if rc.IsPublic(prefix + "/reset-password/") {
		g.POST("/reset-password/:token", api.resetPassword)
	}

	// guarded
	g.POST("/logout", api.logout)
	g.GET("/me", api.me)
}

func (api authApi) login(ctx echo.Context) error {
	var data account.Login
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Login")
	}
	id, err := api.svc.Login(ctx.Request().Context(), contextSession(ctx), data)
	if err != nil {
		return err
	}
	api.dropDraft(ctx)
	return ctx.JSON(http.StatusOK, authResponse{Identity: id, Notice: core.SuccessNotice("Login successful!")})
}

func (api authApi) register(ctx echo.Context) error {
	var data account.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	sc := contextSession(ctx)
	id, err := api.svc.Register(ctx.Request().Context(), sc, data)
	if err != nil {
		return err
	}
	api.dropDraft(ctx)
	if id == nil {
		return ctx.JSON(http.StatusCreated, authResponse{
			Notice:   core.SuccessNotice("Registration successful! Please log in."),
			Redirect: sc.LoginPath(),
		})
	}
	return ctx.JSON(http.StatusCreated, authResponse{Identity: id, Notice: core.SuccessNotice("Registration successful!")})
}

func (api authApi) forgotPassword(ctx echo.Context) error {
	var data account.ForgotPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ForgotPassword")
	}
	notice, err := api.svc.ForgotPassword(ctx.Request().Context(), contextSession(ctx).Role(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, authResponse{Notice: notice})
}

func (api authApi) resetPassword(ctx echo.Context) error {
	var data account.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	sc := contextSession(ctx)
	notice, err := api.svc.ResetPassword(ctx.Request().Context(), sc.Role(), ctx.Param("token"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, authResponse{Notice: notice, Redirect: sc.LoginPath()})
}

func (api authApi) logout(ctx echo.Context) error {
	sc := contextSession(ctx)
	if err := api.svc.Logout(ctx.Request().Context(), sc); err != nil {
		return err
	}
	api.dropDraft(ctx)
	return ctx.JSON(http.StatusOK, authResponse{Notice: core.InfoNotice("You have been logged out."), Redirect: sc.LoginPath()})
}

func (api authApi) me(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, authResponse{Identity: contextIdentity(ctx)})
}

// dropDraft forgets the enrollment draft of the browser session whenever the student signs in or out.
func (api authApi) dropDraft(ctx echo.Context) {
	if api.enrollSvc != nil && contextSession(ctx).Role() == session.RoleStudent {
		api.enrollSvc.Reset(contextSID(ctx))
	}
}
