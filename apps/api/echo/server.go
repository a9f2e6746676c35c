// Package echoapi is the REST API of ProfPay on echo.
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

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/audit"
	"github.com/profpay/profpay/core/budget"
	"github.com/profpay/profpay/core/faculty"
	"github.com/profpay/profpay/core/navigation"
	"github.com/profpay/profpay/core/payer"
	"github.com/profpay/profpay/core/settings"
	"github.com/profpay/profpay/core/stats"
	"github.com/profpay/profpay/core/user"
	metricsvc "github.com/profpay/profpay/services/metrics"
	remindersvc "github.com/profpay/profpay/services/reminder"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Metrics        *metricsvc.Metrics // optional
		DisableReqLogs bool

		UserSvc     *user.Service
		FacultySvc  *faculty.Service
		SettingsSvc *settings.Service
		BudgetSvc   *budget.Service
		PayerSvc    *payer.Service
		StatsSvc    *stats.Service
		AuditSvc    *audit.Service
		ReminderSvc *remindersvc.Service

		// HealthCheck reports whether the storage is reachable. Optional.
		HealthCheck func(ctx context.Context) error
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		tokens   tokenIssuer
		throttle *navigation.Throttle
		guard    *navigation.Guard
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		tokens:   tokenIssuer{conf: deps.Conf},
		throttle: navigation.NewThrottle(deps.Conf.Server.ThrottleWindow, navigation.WithLogger(deps.Logger)),
		guard:    navigation.DefaultGuard(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(requestIDMiddleware())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{Skipper: skipPaths("/health", "/metrics")}))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(securityMiddleware())
	s.app.Use(corsMiddleware(conf.Server.CORSOrigins))
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	s.app.GET("/health", s.health)

	v1 := s.app.Group("/api/v1")
	v1.GET("/health", s.health)

	jwt := middleware.JWTWithConfig(s.tokens.jwtConfig())
	authed := v1.Group("", cookieTokenMiddleware, jwt, userMiddleware(s.deps.UserSvc))
	throttled := throttleMiddleware(s.throttle, s.deps.Metrics)

	s.registerAuthAPI(v1, authed)
	s.registerReferenceAPI(authed)
	s.registerPayerAPI(authed, throttled)
	s.registerStatsAPI(authed)

	s.app.GET("/*", s.spa)
}

// Start listens on the configured address. Errors are sent to Errors().
func (s *Server) Start() {
	s.deps.Logger.Info("API listening on " + s.deps.Conf.Server.Address)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) health(ctx echo.Context) error {
	if s.deps.HealthCheck != nil {
		if err := s.deps.HealthCheck(ctx.Request().Context()); err != nil {
			s.deps.Logger.Error("health check failed", errors.Wrap(err, "checking storage"))
			return ctx.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Version: s.deps.Conf.Build})
		}
	}
	return ctx.JSON(http.StatusOK, healthResponse{Status: "healthy", Version: s.deps.Conf.Build})
}
