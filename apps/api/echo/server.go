// Package echoapi is the HTTP API of the portal.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/identity/local"
	metricsvc "github.com/trezcool/academia/services/metrics"
)

type (
	// Deps are the services the API runs on. Metrics is optional.
	Deps struct {
		Directory  *local.Directory
		Profiles   *user.Accessor
		Records    *academic.Records
		Validate   *validator.Validate
		Translator ut.Translator
		Logger     core.Logger
		Metrics    *metricsvc.Metrics
	}

	Server struct {
		conf     *core.Config
		deps     *Deps
		app      *echo.Echo
		jwt      middleware.JWTConfig
		limiter  *ipRateLimiter
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(conf *core.Config, deps *Deps) *Server {
	s := &Server{
		conf:     conf,
		deps:     deps,
		app:      echo.New(),
		jwt:      newJWTConfig(conf),
		limiter:  newIPRateLimiter(conf.Server.AuthRateLimit, conf.Server.AuthRateBurst),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	debug := s.conf.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
	}
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = debug

	if s.deps.Metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwt)

	registerAuthAPI(v1, jwt, s)
	registerCourseAPI(v1, jwt, s)
	registerRecordsAPI(v1, jwt, s)

	// the portal pages come last: "/*" catches everything else
	registerPages(s.app, jwt, s)
}

// newAuthService returns the auth flows over a fresh identity client, i.e. a one-request session.
func (s *Server) newAuthService() *auth.Service {
	return auth.NewService(
		s.deps.Directory.NewClient(),
		s.deps.Profiles,
		s.deps.Validate,
		auth.WithTimeout(s.conf.Auth.Timeout),
		auth.WithLogger(s.deps.Logger),
	)
}

// Start listens until Shutdown; failures are reported on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	srv := &http.Server{Addr: s.conf.Server.Address}
	if err := s.app.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
