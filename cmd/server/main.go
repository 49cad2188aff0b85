package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/onetop21/mcp-server-hub-sub003/internal/config"
	"github.com/onetop21/mcp-server-hub-sub003/internal/infrastructure/migrations"
	"github.com/onetop21/mcp-server-hub-sub003/internal/infrastructure/repositories"
	"github.com/onetop21/mcp-server-hub-sub003/internal/interfaces/http/handlers"
	"github.com/onetop21/mcp-server-hub-sub003/internal/rate"
	"github.com/onetop21/mcp-server-hub-sub003/internal/usecases"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/jwt"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/logger"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	newSessionStore = redis.NewSessionStore
	runServer       = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB        = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	defer logger.Sync()
	logger.Info(context.Background(), "logger initialized", zap.String("env", cfg.Server.Env))

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}

	// schema migrations are a startup barrier: the listener never opens
	// against a half-migrated database
	runner := migrations.NewRunner(db)
	if err := runner.Run(context.Background()); err != nil {
		return fmt.Errorf("schema migrations failed: %w", err)
	}
	logger.Info(context.Background(), "schema migrations up to date")

	// session store is optional; without redis, session login is disabled
	// and token login still works
	var sessionStore usecases.SessionStore
	if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
		logger.Warn(context.Background(), "redis unavailable, session login disabled", zap.Error(err))
	} else {
		store, err := newSessionStore(cfg.Security.SessionEncryptionKey)
		if err != nil {
			return fmt.Errorf("failed to initialize session store: %w", err)
		}
		sessionStore = store
	}

	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	userRepo := repositories.NewUserRepository(db)
	apiKeyRepo := repositories.NewApiKeyRepository(db)

	defaultPolicy := cfg.RateLimit.Policy()
	limiter := rate.NewLimiter()

	authUsecase := usecases.NewAuthUsecase(userRepo, jwtService, sessionStore, cfg.JWT.RefreshExpiry)
	apiKeyUsecase := usecases.NewApiKeyUsecase(apiKeyRepo, userRepo, defaultPolicy)
	apiKeyUsecase.OnRevoke(limiter.Forget)
	gateway := usecases.NewAuthGateway(jwtService, apiKeyUsecase, limiter, userRepo, cfg.Database.Timeout)

	authHandler := handlers.NewAuthHandler(authUsecase)
	apiKeyHandler := handlers.NewApiKeyHandler(apiKeyUsecase)
	healthHandler := handlers.NewHealthHandler(db, runner)

	r := newRouter(routeDeps{
		gateway:       gateway,
		authHandler:   authHandler,
		apiKeyHandler: apiKeyHandler,
		healthHandler: healthHandler,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("shutting down server...")
		logger.Sync()
		os.Exit(0)
	}()

	logger.Info(context.Background(), "server starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("defaultRequestsPerHour", defaultPolicy.RequestsPerHour),
		zap.Int("defaultRequestsPerDay", defaultPolicy.RequestsPerDay),
	)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
