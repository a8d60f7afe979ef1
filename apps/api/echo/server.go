package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/dig"
	"golang.org/x/time/rate"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/policy"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

type (
	// ServerDeps holds the dependencies of the API Server. It is filled by the dig container.
	ServerDeps struct {
		dig.In

		Conf          *core.Config
		Logger        core.Logger
		Policy        *policy.Policy
		Validate      *validator.Validate
		Translator    ut.Translator
		UserSvc       user.ServiceInterface
		SchoolSvc     school.ServiceInterface
		AttendanceSvc attendance.ServiceInterface
		AcademicsSvc  academics.ServiceInterface
	}

	Server struct {
		app      *echo.Echo
		srv      *http.Server
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup(deps)

	var handler http.Handler = s.app
	if deps.Conf.Server.Tracing {
		handler = otelhttp.NewHandler(s.app, deps.Conf.AppName)
	}
	s.srv = &http.Server{
		Addr:              deps.Conf.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if !deps.Conf.TestMode {
		signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	}
	return s
}

func (s *Server) setup(deps ServerDeps) {
	conf := deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	auth := newJWTAuth(conf)
	g := guard{policy: deps.Policy}
	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(conf.Server.LoginRateLimit)))

	api := s.app.Group("/api", authMiddleware(auth, deps.UserSvc))

	registerUserAPI(api, g, auth, limiter, deps.UserSvc, deps.Validate)
	registerClassLevelAPI(api, g, deps.SchoolSvc, deps.UserSvc, deps.Validate)
	registerSubjectAPI(api, g, deps.SchoolSvc, deps.Validate)
	registerAttendanceAPI(api, g, deps.AttendanceSvc, deps.Validate)
	registerAcademicsAPI(api, g, deps.AcademicsSvc, deps.UserSvc, deps.Validate)
	registerAnnouncementAPI(api, g, deps.SchoolSvc, deps.Validate)
	registerMaterialAPI(api, g, deps.SchoolSvc, deps.Validate)
}

// Start listens on the configured address. Failures are reported on Errors().
func (s *Server) Start() {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.srv.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.srv.Handler.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}
