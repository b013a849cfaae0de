package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/course"
	"github.com/trezcool/aicanvas/core/user"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "Forbidden")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}
		shuttingDown := core.IsShutdown(err)

		switch {
		case errors.Is(err, user.ErrNotFound):
			code = http.StatusNotFound
			message = "User not found. Please provide a role."
		case errors.Is(err, user.ErrInvalidRole):
			code = http.StatusBadRequest
			message = err.Error()
		case errors.Is(err, course.ErrForbidden):
			code = http.StatusForbidden
			message = "Forbidden"
		case errors.Is(err, course.ErrNotFound):
			code = http.StatusNotFound
			message = "Course not found"
		default:
			switch origErr := errors.Cause(err).(type) {
			case *echo.HTTPError:
				code = origErr.Code
				message = origErr.Message
				if code >= http.StatusInternalServerError {
					logServerError(ctx, logger, err)
				} else if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					code = herr.Code
					message = herr.Message
				}
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = echo.Map{"error": "invalid request", "fields": fldErrs}
			case *core.ValidationError:
				code = http.StatusBadRequest
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = echo.Map{"error": origErr.Error(), "fields": fldErrs}
				} else {
					message = origErr.Error()
				}
			default: // any other error is a server error
				code = http.StatusInternalServerError
				message = http.StatusText(code)
				logServerError(ctx, logger, err)
			}
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

		// shutting down...
		if shuttingDown {
			signalShutdown()
		}
	}
}

func logServerError(ctx echo.Context, logger core.Logger, err error) {
	msg := http.StatusText(http.StatusInternalServerError)
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		logger.Error(msg, errors.WithStack(err), usr)
		return
	}
	logger.Error(msg, errors.WithStack(err))
}
