package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/session"
)

const (
	contextSIDKey     = "sid"
	contextSessionKey = "session"
)

// authRequired sends the client to the role's login page.
type authRequired struct {
	Location string
}

func (e *authRequired) Error() string { return "authentication required" }

// sessionMiddleware resolves the browser session from its signed cookie, starting a new one
// when the cookie is missing or was tampered with.
func (s *server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var sid string
		if cookie, err := ctx.Cookie(s.Conf.Sessions.CookieName); err == nil {
			sid, _ = session.VerifySessionID(s.Conf.SecretKey, cookie.Value)
		}
		if sid == "" {
			sid = session.NewSessionID()
			ctx.SetCookie(&http.Cookie{
				Name:     s.Conf.Sessions.CookieName,
				Value:    session.SignSessionID(s.Conf.SecretKey, sid),
				Path:     "/",
				MaxAge:   int(s.Conf.Sessions.TTL.Seconds()),
				Secure:   s.Conf.Sessions.CookieSecure,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx.Set(contextSIDKey, sid)
		return next(ctx)
	}
}

// roleMiddleware hydrates the role's session context and guards every non-public path.
func (s *server) roleMiddleware(role session.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sc, err := s.Sessions.Context(role, contextSID(ctx))
			if err != nil {
				return errors.Wrap(err, "getting session context")
			}
			reqCtx := ctx.Request().Context()
			if err = sc.Hydrate(reqCtx); err != nil {
				if errors.Cause(err) == session.ErrStoreClosed {
					return core.NewShutdownError(err.Error())
				}
				return errors.Wrap(err, "hydrating session context")
			}
			ctx.Set(contextSessionKey, sc)

			path := ctx.Request().URL.Path
			if sc.Config().IsPublic(path) {
				return next(ctx)
			}
			if target, redirect := sc.RedirectTarget(path); redirect {
				return &authRequired{Location: target}
			}
			// signed in: the token must still be there
			verdict, err := session.Guard(reqCtx, sc)
			if err != nil {
				return errors.Wrap(err, "guarding")
			}
			if verdict.Decision != session.Allow {
				return &authRequired{Location: sc.LoginPath()}
			}
			return next(ctx)
		}
	}
}

func contextSID(ctx echo.Context) string {
	sid, _ := ctx.Get(contextSIDKey).(string)
	return sid
}

func contextSession(ctx echo.Context) *session.Context {
	sc, _ := ctx.Get(contextSessionKey).(*session.Context)
	return sc
}

func contextIdentity(ctx echo.Context) *session.Identity {
	if sc := contextSession(ctx); sc != nil {
		return sc.Identity()
	}
	return nil
}
