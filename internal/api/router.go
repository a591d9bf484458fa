package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/chirp-social/chirp/internal/auth"
	"github.com/chirp-social/chirp/internal/handlers"
	"github.com/chirp-social/chirp/internal/middleware"
	"github.com/chirp-social/chirp/internal/monitoring"
	"github.com/chirp-social/chirp/internal/realtime"
)

// Deps carries everything the router wires together. Google and RateStore
// are optional; ClientURL is where the OAuth callback redirects.
type Deps struct {
	DB        *gorm.DB
	Auth      *iauth.Service
	Creds     *iauth.CredentialStore
	Google    *iauth.GoogleProvider
	Hub       *realtime.Hub
	Health    *monitoring.HealthManager
	RateStore middleware.RateStore
	ClientURL string

	// Per-IP request budgets. Zero values fall back to 300 and 20 requests
	// per minute respectively.
	RateLimit     int
	AuthRateLimit int
	RateWindow    time.Duration
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service must be provided")
	}
	if deps.Creds == nil {
		return nil, fmt.Errorf("credential store must be provided")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("realtime hub must be provided")
	}

	rateStore := deps.RateStore
	if rateStore == nil {
		rateStore = middleware.NewMemoryRateStore()
	}

	rateLimit := deps.RateLimit
	if rateLimit <= 0 {
		rateLimit = 300
	}
	authRateLimit := deps.AuthRateLimit
	if authRateLimit <= 0 {
		authRateLimit = 20
	}
	rateWindow := deps.RateWindow
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimitWithStore(rateStore, rateLimit, rateWindow))

	health := deps.Health
	if health == nil {
		health = monitoring.NewHealthManager()
		health.Register(monitoring.DatabaseCheck(deps.DB, 0))
		health.Register(monitoring.RealtimeCheck(deps.Hub.Registry()))
	}

	r.GET("/health", handlers.Health())
	r.GET("/health/ready", handlers.Readiness(health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Google, deps.ClientURL)
	usersHandler := handlers.NewUsersHandler(deps.DB, deps.Creds)
	realtimeHandler := handlers.NewRealtimeHandler(deps.Hub, deps.Auth)

	// Credential-guessing endpoints get a much tighter budget than the API
	// at large.
	strictLimit := middleware.RateLimitWithStore(rateStore, authRateLimit, rateWindow)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", strictLimit, authHandler.Register)
		auth.POST("/login", strictLimit, authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/verify-email", authHandler.VerifyEmail)
		auth.POST("/forgot-password", strictLimit, authHandler.ForgotPassword)
		auth.POST("/verify-forgot-password", authHandler.VerifyForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.GET("/oauth/google", authHandler.OAuthGoogle)
	}

	requireAuth := middleware.Auth(deps.Auth)

	protected := r.Group("/api")
	protected.Use(requireAuth)
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.POST("/auth/resend-verify-email", authHandler.ResendVerifyEmail)
		protected.POST("/auth/change-password", authHandler.ChangePassword)

		protected.GET("/users/me", usersHandler.Me)
		protected.PATCH("/users/me", middleware.RequireVerified(), usersHandler.UpdateMe)
	}

	r.GET("/api/users/:username", usersHandler.Profile)

	// The websocket endpoint authenticates on its own; browser clients pass
	// the token as a query parameter.
	r.GET("/ws", realtimeHandler.Serve)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
