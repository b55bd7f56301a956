package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/session"
	"github.com/trezcool/ktx/core/student"
)

var (
	errAdminRequired    = echo.NewHTTPError(http.StatusForbidden, "admin login required")
	errStudentNotFound  = echo.NewHTTPError(http.StatusNotFound, student.ErrNotFound.Error())
	errRoomNotFound     = echo.NewHTTPError(http.StatusNotFound, room.ErrNotFound.Error())
	errInvalidQueryArgs = echo.NewHTTPError(http.StatusBadRequest, "room and facility are required")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, sessions *session.Service, signalShutdown func()) echo.HTTPErrorHandler {
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
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
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
			if errors.Is(origErr, student.ErrDuplicateKey) {
				code = http.StatusConflict
			}
		default:
			switch origErr {
			case student.ErrNotFound:
				code = http.StatusNotFound
				message = origErr.Error()
			case room.ErrNotFound:
				code = http.StatusNotFound
				message = origErr.Error()
			case room.ErrNoRooms:
				code = http.StatusConflict
				message = origErr.Error()
			case session.ErrInvalidCredentials:
				code = http.StatusUnauthorized
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				args := []interface{}{errors.Wrap(err, msg)}
				if usr, ok := getContextStudent(ctx); ok {
					args = append(args, usr)
				} else if sessions != nil {
					if usr, ok, _ := sessions.CurrentStudent(ctx.Request().Context(), getScope(ctx)); ok {
						args = append(args, usr)
					}
				}
				logger.Error(msg, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
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
