package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func isAPIRequest(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().URL.Path, apiPrefix)
}

// adminMiddleware lets admin sessions through. Pages redirect to the admin login, the API answers 403.
func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ok, err := s.deps.SessionSvc.IsAdmin(ctx.Request().Context(), getScope(ctx))
		if err != nil {
			return errors.Wrap(err, "checking admin session")
		}
		if ok {
			return next(ctx)
		}
		if isAPIRequest(ctx) {
			return errAdminRequired
		}
		return ctx.Redirect(http.StatusSeeOther, "/admin/login")
	}
}

// studentMiddleware lets student sessions through and puts the student in the context.
func (s *Server) studentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, ok, err := s.deps.SessionSvc.CurrentStudent(ctx.Request().Context(), getScope(ctx))
		if err != nil {
			return errors.Wrap(err, "reading student session")
		}
		if !ok {
			return ctx.Redirect(http.StatusSeeOther, "/login")
		}
		ctx.Set(contextStudentKey, usr)
		return next(ctx)
	}
}
