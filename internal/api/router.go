package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/asgr-game/account-service/docs"
	"github.com/asgr-game/account-service/internal/api/handler"
	"github.com/asgr-game/account-service/internal/api/middleware"
	"github.com/asgr-game/account-service/internal/core/domain"
	"github.com/asgr-game/account-service/internal/core/ports"
)

// RouterDeps carries what NewRouter needs. Registerer and Gatherer default to
// the global Prometheus registry.
type RouterDeps struct {
	Accounts   ports.AccountService
	Health     *handler.HealthHandler
	Log        zerolog.Logger
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Swagger    bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Health == nil {
		deps.Health = handler.NewHealthHandler(nil)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "asgr",
		Registerer: deps.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Account routes ---
	accounts := handler.NewAccountHandler(deps.Accounts, deps.Log)
	auth := middleware.Auth(deps.Accounts)

	g := e.Group("/account")
	g.POST("/register", accounts.Register)
	g.POST("/login", accounts.Login)
	g.GET("/confirm_email/:token", accounts.ConfirmEmail)
	g.PUT("/update_password", accounts.UpdatePassword, auth)
	g.PUT("/update", accounts.UpdateProfile, auth)
	g.GET("/me", accounts.Me, auth)
	g.POST("/logout", accounts.Logout, auth)

	// --- Superuser routes ---
	admin := handler.NewAdminHandler(deps.Accounts, deps.Log)
	su := e.Group("/su", auth, middleware.RBAC(domain.RoleSuperuser))
	su.GET("/", admin.ListUsers)
	su.PUT("/users/:id/activate", admin.Activate)
	su.PUT("/users/:id/deactivate", admin.Deactivate)

	// --- Health checks and metrics (no auth required) ---
	e.GET("/health", deps.Health.Liveness)
	e.GET("/health/ready", deps.Health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))

	if deps.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			// route template only, the raw path may carry a confirmation token
			ev := log.Info()
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Error != nil:
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", c.Path()).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
