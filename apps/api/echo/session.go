package echoapi

import (
	"io"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/ktx/core/session"
	"github.com/trezcool/ktx/core/student"
	"github.com/trezcool/ktx/core/view"
)

const (
	SessionCookieName = "ktx_session"

	contextScopeKey   = "scope"
	contextStudentKey = "student"
)

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// sessionClaims identifies a browser; its flags live in the store under the scope (Subject).
type sessionClaims struct {
	jwt.StandardClaims
}

func (s *Server) newSessionToken(scope string) (string, error) {
	now := time.Now()
	claims := &sessionClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.conf.AppName,
			Subject:   scope,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.conf.Server.SessionTTL).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(s.conf.SecretKey))
	return ss, errors.Wrap(err, "signing session token")
}

// parseSessionToken returns the scope of a valid token, "" otherwise.
func (s *Server) parseSessionToken(tokenStr string) string {
	token, err := jwt.ParseWithClaims(tokenStr, new(sessionClaims), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return []byte(s.conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	if claims, ok := token.Claims.(*sessionClaims); ok {
		return claims.Subject
	}
	return ""
}

// sessionMiddleware gives every client a scope, issuing a new signed cookie when it has no valid one.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var scope string
		if cookie, err := ctx.Cookie(SessionCookieName); err == nil {
			scope = s.parseSessionToken(cookie.Value)
		}
		if scope == "" {
			scope = uuid.NewString()
			token, err := s.newSessionToken(scope)
			if err != nil {
				return err
			}
			ctx.SetCookie(&http.Cookie{
				Name:     SessionCookieName,
				Value:    token,
				Path:     "/",
				Expires:  time.Now().Add(s.conf.Server.SessionTTL),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx.Set(contextScopeKey, scope)
		return next(ctx)
	}
}

func getScope(ctx echo.Context) string {
	scope, _ := ctx.Get(contextScopeKey).(string)
	return scope
}

func getContextStudent(ctx echo.Context) (student.Student, bool) {
	usr, ok := ctx.Get(contextStudentKey).(student.Student)
	return usr, ok
}

func (s *Server) sessionState(ctx echo.Context) session.State {
	state, err := s.deps.SessionSvc.State(ctx.Request().Context(), getScope(ctx))
	if err != nil {
		s.deps.Logger.Warn("reading session state", err)
	}
	return state
}

func (s *Server) newPage(ctx echo.Context, title string, content interface{}, status *view.Status) view.Page {
	return view.Page{
		AppName: s.conf.AppName,
		Title:   title,
		State:   s.sessionState(ctx).String(),
		CSRF:    csrfToken(ctx),
		Status:  status,
		Content: content,
	}
}

func csrfToken(ctx echo.Context) string {
	csrf, _ := ctx.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return csrf
}

type echoRenderer struct {
	r *view.Renderer
}

func (er *echoRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return er.r.Render(w, name, data)
}
