package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"crm-service/internal/audit"
	"crm-service/internal/auth"
	"crm-service/internal/config"
	"crm-service/internal/http/handler"
	"crm-service/internal/http/middleware"
	"crm-service/internal/rbac"
	"crm-service/internal/rbac/presets"
	"crm-service/pkg/metrics"
	"crm-service/pkg/profiling"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	jsonKeyStatus    = "status"
	jsonKeyUptime    = "uptimeSeconds"
	statusOK         = "ok"
	requestBodyLimit = "1M"
)

type ServerDependencies struct {
	Config         *config.Config
	Logger         *zap.Logger
	Checker        *rbac.Checker
	Logins         handler.LoginService
	Users          handler.UserGetter
	UserStore      handler.UserRepository
	Members        handler.MemberRepository
	Sessions       handler.SessionInvalidator
	APIKeys        handler.APIKeyManager
	Tester         handler.SuiteRunner
	Executor       handler.RequestExecutor
	KeyLimiter     *middleware.KeyRateLimiter
	AuthMiddleware *auth.Middleware
	RBACMiddleware *auth.RBACMiddleware
	AuditLogger    *audit.Logger
	Metrics        *metrics.Metrics
}

type Server struct {
	echo    *echo.Echo
	deps    *ServerDependencies
	started time.Time
}

func NewServer(deps *ServerDependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	s := &Server{echo: e, deps: deps, started: time.Now()}

	// Request ID first, so all logs carry it
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(requestLogger(log))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))
	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
	}

	globalRateLimiter := middleware.NewGlobalRateLimiter()
	e.Use(globalRateLimiter.Middleware())
	strictRateLimiter := middleware.NewStrictRateLimiter()

	authHandler := handler.NewAuthHandler(deps.Logins, deps.Users, deps.Checker, deps.AuditLogger)
	permissionHandler := handler.NewPermissionHandler(deps.Checker)
	apiKeyHandler := handler.NewAPIKeyHandler(deps.APIKeys, deps.Tester, deps.Checker, deps.KeyLimiter, deps.AuditLogger)
	teamHandler := handler.NewTeamHandler(deps.Members, deps.UserStore, deps.Sessions, deps.Checker, deps.AuditLogger, log)
	simulateHandler := handler.NewSimulateHandler(deps.Executor, deps.Checker)

	e.GET("/health", s.healthCheck)

	requireSession := deps.AuthMiddleware.RequireSession()
	can := deps.RBACMiddleware.RequirePermission

	e.POST("/auth/login", authHandler.Login, strictRateLimiter.Middleware())
	authGroup := e.Group("/auth", requireSession)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/session", authHandler.Session)

	api := e.Group("/api", requireSession)
	api.GET("/permissions", permissionHandler.List)
	api.GET("/permissions/check", permissionHandler.Check)

	keys := api.Group("/api-keys")
	keys.GET("", apiKeyHandler.ListAPIKeys, can(presets.ResourceAPI, presets.ActionView))
	keys.POST("", apiKeyHandler.CreateAPIKey, can(presets.ResourceAPI, presets.ActionCreateKeys))
	keys.GET("/scenarios", apiKeyHandler.ListScenarios, can(presets.ResourceAPI, presets.ActionView))
	keys.GET("/:id", apiKeyHandler.GetAPIKey, can(presets.ResourceAPI, presets.ActionView))
	keys.POST("/:id/revoke", apiKeyHandler.RevokeAPIKey, can(presets.ResourceAPI, presets.ActionRevokeKeys))
	keys.DELETE("/:id", apiKeyHandler.DeleteAPIKey, can(presets.ResourceAPI, presets.ActionRevokeKeys))
	keys.POST("/:id/test", apiKeyHandler.RunTests, can(presets.ResourceAPI, presets.ActionView))

	team := api.Group("/team")
	team.GET("", teamHandler.ListMembers, can(presets.ResourceTeam, presets.ActionView))
	team.POST("/invite", teamHandler.InviteMember, can(presets.ResourceTeam, presets.ActionInvite))
	team.PUT("/:id/role", teamHandler.ChangeRole, can(presets.ResourceTeam, presets.ActionChangeRoles))
	team.DELETE("/:id", teamHandler.RemoveMember, can(presets.ResourceTeam, presets.ActionRemove))

	v1 := e.Group("/v1", deps.AuthMiddleware.RequireAPIKey())
	v1.GET("/:resource", simulateHandler.Handle)
	v1.POST("/:resource", simulateHandler.Handle)
	v1.PUT("/:resource/:id", simulateHandler.Handle)
	v1.DELETE("/:resource/:id", simulateHandler.Handle)

	if deps.Metrics != nil {
		deps.Metrics.RegisterRoutes(e)
	}
	if deps.Config.App.ProfilingEnabled {
		profiling.RegisterRoutes(e)
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() stdhttp.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]any{
		jsonKeyStatus: statusOK,
		jsonKeyUptime: time.Since(s.started).Seconds(),
	})
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			if v.Status >= stdhttp.StatusInternalServerError {
				log.Warn("request", fields...)
			} else {
				log.Info("request", fields...)
			}
			return nil
		},
	})
}
