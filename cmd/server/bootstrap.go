package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/chirp-social/chirp/internal/api"
	"github.com/chirp-social/chirp/internal/app"
	"github.com/chirp-social/chirp/internal/app/maintenance"
	iauth "github.com/chirp-social/chirp/internal/auth"
	"github.com/chirp-social/chirp/internal/cache"
	"github.com/chirp-social/chirp/internal/database"
	"github.com/chirp-social/chirp/internal/middleware"
	"github.com/chirp-social/chirp/internal/monitoring"
	"github.com/chirp-social/chirp/internal/realtime"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/chirp-social/chirp/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     cache.Store
	Sessions  *iauth.SessionStore
	Auth      *iauth.Service
	Hub       *realtime.Hub
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, caches, auth services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	tokens, err := iauth.NewTokenService(cfg.Auth.TokenServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise token service: %w", err)
	}

	creds, err := iauth.NewCredentialStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise credential store: %w", err)
	}

	stack.Sessions, err = iauth.NewSessionStore(stack.DB, nil)
	if err != nil {
		return nil, fmt.Errorf("initialise session store: %w", err)
	}

	// googleFetcher stays a nil interface when the provider is disabled so
	// the service can detect the absence.
	var (
		google        *iauth.GoogleProvider
		googleFetcher iauth.GoogleFetcher
	)
	if cfg.OAuth.Google.Enabled {
		google, err = iauth.NewGoogleProvider(ctx, cfg.OAuth.GoogleProviderConfig())
		if err != nil {
			return nil, fmt.Errorf("initialise google oauth provider: %w", err)
		}
		googleFetcher = google
		log.Info("google oauth enabled", zap.String("redirect_url", cfg.OAuth.Google.RedirectURL))
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	notify := mail.NewNotifier(mailer, cfg.Client.URL)

	stack.Auth, err = iauth.NewService(stack.DB, tokens, creds, stack.Sessions, googleFetcher, notify)
	if err != nil {
		return nil, fmt.Errorf("initialise auth service: %w", err)
	}

	stack.Hub = realtime.NewHub(stack.Auth, nil)

	stack.Cleaner = maintenance.NewCleaner(stack.DB, stack.Sessions)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	switch {
	case stack.Redis != nil:
		stack.RateStore = middleware.NewRedisRateStore(stack.Redis)
	default:
		stack.RateStore = middleware.NewDatabaseRateStore(dbStore)
	}

	health := monitoring.NewHealthManager()
	health.Register(monitoring.DatabaseCheck(stack.DB, 0))
	redisPinger, _ := stack.Redis.(monitoring.Pinger)
	health.Register(monitoring.RedisCheck(redisPinger, cfg.Cache.Redis.Enabled, 0))
	health.Register(monitoring.RealtimeCheck(stack.Hub.Registry()))

	stack.Router, err = api.NewRouter(api.Deps{
		DB:            stack.DB,
		Auth:          stack.Auth,
		Creds:         creds,
		Google:        google,
		Hub:           stack.Hub,
		Health:        health,
		RateStore:     stack.RateStore,
		ClientURL:     cfg.Client.URL,
		RateLimit:     cfg.RateLimit.Requests,
		AuthRateLimit: cfg.RateLimit.AuthRequests,
		RateWindow:    cfg.RateLimit.Window,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if rc, ok := s.Redis.(*cache.RedisClient); ok && rc != nil {
		if err := rc.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
