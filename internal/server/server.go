package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/aman-churiwal/gatekeeper/internal/apperror"
	"github.com/aman-churiwal/gatekeeper/internal/config"
	"github.com/aman-churiwal/gatekeeper/internal/handler"
	"github.com/aman-churiwal/gatekeeper/internal/middleware"
	"github.com/aman-churiwal/gatekeeper/internal/rbac"
	"github.com/aman-churiwal/gatekeeper/internal/ratelimit"
	"github.com/aman-churiwal/gatekeeper/internal/security"
	"github.com/aman-churiwal/gatekeeper/internal/service"
	"github.com/gin-gonic/gin"
)

// Pinger is a dependency the health check reports on
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are constructed once at process start and handed to the server
type Deps struct {
	Users    service.UserStore
	Recorder ratelimit.Recorder
	Logger   *slog.Logger
	Checks   map[string]Pinger
	Now      func() time.Time
}

type Server struct {
	router      *gin.Engine
	config      *config.Config
	proxies     []netip.Prefix
	limiter     *ratelimit.FixedWindowLimiter
	policies    *ratelimit.PolicyTable
	recorder    ratelimit.Recorder
	checks      map[string]Pinger
	authService *service.AuthService
	errorLogger *apperror.Logger
	now         func() time.Time

	authHandler    *handler.AuthHandler
	userHandler    *handler.UserHandler
	contentHandler *handler.ContentHandler
	webhookHandler *handler.WebhookHandler
	adminHandler   *handler.AdminHandler

	httpServer   *http.Server
	stopSweeping context.CancelFunc
}

func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	policies, err := cfg.PolicyTable()
	if err != nil {
		return nil, err
	}

	proxies, err := cfg.ProxyPrefixes()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	var trusted []string
	if cfg.Server.TrustProxy {
		trusted = cfg.Server.TrustedProxies
	}
	if err := router.SetTrustedProxies(trusted); err != nil {
		return nil, err
	}

	recorder := deps.Recorder
	if recorder == nil {
		recorder = ratelimit.NewMemoryRecorder()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	authService := service.NewAuthService(deps.Users, cfg.Auth.JWTSecret, cfg.Auth.JWTExpiryHours)
	userService := service.NewUserService(deps.Users)

	s := &Server{
		router:      router,
		config:      cfg,
		proxies:     proxies,
		limiter:     ratelimit.NewFixedWindow(policies),
		policies:    policies,
		recorder:    recorder,
		checks:      deps.Checks,
		authService: authService,
		errorLogger: apperror.NewLogger(deps.Logger),
		now:         now,

		authHandler:    handler.NewAuthHandler(authService, cfg.Security.CSRFSecret, cfg.IsProduction(), cfg.Auth.JWTExpiryHours),
		userHandler:    handler.NewUserHandler(userService),
		contentHandler: handler.NewContentHandler(),
		webhookHandler: handler.NewWebhookHandler(),
		adminHandler:   handler.NewAdminHandler(recorder, policies.Policies()),
	}

	// Setup middleware
	s.setupMiddleware()

	// Setup routes
	s.setupRoutes()

	return s, nil
}

// Order matters: identity is resolved before the gatekeeper so the rate limit
// key can include the user id, and the error handler wraps everything that
// may record an error.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.ErrorHandler(s.errorLogger))
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.Identify(s.authService))
	s.router.Use(middleware.Gatekeeper(middleware.GatekeeperConfig{
		Limiter:        s.limiter,
		Recorder:       s.recorder,
		CORS:           security.NewCORS(s.config.IsProduction(), s.config.Security.AllowedOrigins),
		APIPrefix:      "/api",
		TrustedProxies: s.proxies,
		Now:            s.now,
	}))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	csrf := middleware.RequireCSRF(s.config.Security.CSRFSecret)

	api := s.router.Group("/api")
	{
		api.GET("/csrf", s.authHandler.CSRFToken)
		api.POST("/content/check", s.contentHandler.Check)

		auth := api.Group("/auth")
		auth.POST("/register", s.authHandler.Register)
		auth.POST("/login", s.authHandler.Login)

		api.POST("/webhooks/payment",
			middleware.RequireWebhookSignature(s.config.Security.WebhookSecret),
			s.webhookHandler.Payment)

		authed := api.Group("", middleware.RequireAuth())
		authed.GET("/me", s.userHandler.Me)
		authed.PATCH("/me", csrf, s.userHandler.UpdateMe)
		authed.GET("/users/:id", s.userHandler.Get)
		authed.POST("/upload", csrf, s.contentHandler.Upload)

		premium := api.Group("/premium", middleware.RequireAnyRole(rbac.RolePremium, rbac.RoleAdmin))
		premium.POST("/export", csrf, s.contentHandler.Export)

		admin := api.Group("/admin", middleware.RequireRole(rbac.RoleAdmin))
		admin.GET("/users", s.userHandler.List)
		admin.PATCH("/users/:id/role", csrf, s.userHandler.UpdateRole)
		admin.GET("/stats", s.adminHandler.Stats)
	}

	s.router.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperror.NotFound(""))
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	for name, dep := range s.checks {
		ok := true
		if err := dep.Ping(c.Request.Context()); err != nil {
			ok = false
			healthy = false
			log.Printf("%s health check failed: %v", name, err)
		}
		checks[name] = ok
	}

	status := "healthy"
	statusCode := http.StatusOK

	if !healthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "gatekeeper",
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(startTime).Seconds(),
		"checks":    checks,
	})
}

// StartSweeper begins periodic eviction of expired rate limit windows
func (s *Server) StartSweeper() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweeping = cancel
	s.limiter.StartSweeper(ctx, s.config.RateLimitSweepInterval)
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting gatekeeper on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if s.stopSweeping != nil {
		s.stopSweeping()
	}

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

var startTime = time.Now()
