package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/account"
	"github.com/trezcool/tutorhub/core/backend"
	"github.com/trezcool/tutorhub/core/dashboard"
	"github.com/trezcool/tutorhub/core/enroll"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *echo.BindingError:
			code = http.StatusBadRequest
			message = echo.Map{origErr.Field: origErr.Message}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *authRequired:
			code = http.StatusUnauthorized
			message = echo.Map{"error": origErr.Error(), "redirect": origErr.Location}
		case *enroll.BlockedError:
			code = http.StatusUnprocessableEntity
			message = echo.Map{
				"error":     origErr.Notice.Message,
				"step":      origErr.Step,
				"step_name": origErr.Step.String(),
				"notice":    origErr.Notice,
			}
		case *backend.Error:
			code, message = backendStatus(origErr)
		default:
			switch origErr {
			case dashboard.ErrUnknownResource:
				code, message = http.StatusNotFound, origErr.Error()
			case dashboard.ErrReadOnly:
				code, message = http.StatusMethodNotAllowed, origErr.Error()
			case account.ErrRegistrationClosed:
				code, message = http.StatusForbidden, origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				if id := contextIdentity(ctx); id != nil {
					logger.Error(msg, errors.Wrap(err, msg), *id)
				} else {
					logger.Error(msg, errors.Wrap(err, msg))
				}

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// backendStatus maps a backend failure to the portal's answer: client errors are relayed,
// server errors become a bad gateway.
func backendStatus(err *backend.Error) (int, string) {
	switch {
	case err.StatusCode == http.StatusUnauthorized, err.StatusCode == http.StatusForbidden,
		err.StatusCode == http.StatusNotFound, err.StatusCode == http.StatusConflict:
		return err.StatusCode, err.Message
	case err.StatusCode >= 400 && err.StatusCode < 500:
		return http.StatusBadRequest, err.Message
	default:
		return http.StatusBadGateway, "backend unavailable"
	}
}
