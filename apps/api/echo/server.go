package echoapi

import (
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/core/feedback"
	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/session"
	"github.com/trezcool/ktx/core/student"
	"github.com/trezcool/ktx/core/view"
	"github.com/trezcool/ktx/storage/gateway"
)

const apiPrefix = "/api/v1"

type (
	Deps struct {
		Logger      core.Logger
		Translator  ut.Translator
		Renderer    *view.Renderer
		Gateway     *gateway.Gateway
		StudentSvc  *student.Service
		RoomSvc     *room.Registry
		SessionSvc  *session.Service
		FeedbackSvc *feedback.Service
	}

	Server struct {
		*http.Server
		app      *echo.Echo
		conf     *core.Config
		deps     *Deps
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(conf *core.Config, deps *Deps) *Server {
	app := echo.New()
	s := &Server{
		Server: &http.Server{
			Addr:    conf.Server.Address,
			Handler: app,
		},
		app:      app,
		conf:     conf,
		deps:     deps,
		metrics:  newMetrics(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.Renderer = &echoRenderer{s.deps.Renderer}
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.deps.SessionSvc, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.conf.Server.CSRF {
		s.app.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			Skipper: func(ctx echo.Context) bool {
				return strings.HasPrefix(ctx.Path(), apiPrefix) || ctx.Path() == "/metrics" || ctx.Path() == "/healthz"
			},
			TokenLookup:    "form:_csrf",
			CookieHTTPOnly: true,
		}))
	}
	s.app.Use(s.sessionMiddleware)

	s.app.GET("/healthz", s.healthz)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
	s.app.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", http.FileServer(http.FS(view.StaticFS())))))

	s.registerPages()
	s.registerAPI(s.app.Group(apiPrefix))
}

// Start listens until the server is shut down; the outcome is sent to Errors.
func (s *Server) Start() {
	s.errors <- s.ListenAndServe()
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) healthz(ctx echo.Context) error {
	if err := s.deps.Gateway.Ping(ctx.Request().Context()); err != nil {
		s.deps.Logger.Error("health check failed", err)
		return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": s.conf.Build})
}
