package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brokerage-dashboard/internal/config"
	"github.com/brokerage-dashboard/internal/handler"
	"github.com/brokerage-dashboard/internal/logger"
	"github.com/brokerage-dashboard/internal/market"
	"github.com/brokerage-dashboard/internal/middleware"
	"github.com/brokerage-dashboard/internal/models"
	"github.com/brokerage-dashboard/internal/realtime"
	"github.com/brokerage-dashboard/internal/repository"
	"github.com/brokerage-dashboard/internal/scheduler"
	"github.com/brokerage-dashboard/internal/service"
	"github.com/brokerage-dashboard/pkg/crypto"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Build info (injected at build time via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Load .env if present; real env vars still take precedence
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := initDatabase(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}

	// Initialize Redis
	rdb := initRedis(cfg)

	// Auto migrate database
	if err := autoMigrate(db); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	tradeRepo := repository.NewTradeRepository(db)

	if err := seedAdminUser(userRepo, zlog); err != nil {
		zlog.Fatal("failed to seed admin user", zap.Error(err))
	}

	// Market data gateway and realtime infrastructure
	marketClient := market.NewClient(cfg.Market, zlog)
	hub := realtime.NewHub(zlog)
	refresher := scheduler.NewRefresher(
		marketClient,
		hub,
		rdb,
		zlog,
		time.Duration(cfg.Market.RefreshSeconds)*time.Second,
		time.Duration(cfg.Market.SymbolTTLMinutes)*time.Minute,
	)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.JWT)
	tradingService := service.NewTradingService(tradeRepo, zlog)
	portfolioService := service.NewPortfolioService(tradeRepo, marketClient, refresher, zlog)
	strategyService := service.NewStrategyService(marketClient, zlog)
	notificationService := service.NewNotificationService(userRepo, service.NewSMTPSender(cfg.SMTP), zlog)
	adminService := service.NewAdminService(userRepo, zlog)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	portfolioHandler := handler.NewPortfolioHandler(portfolioService)
	tradingHandler := handler.NewTradingHandler(tradingService, strategyService)
	notificationHandler := handler.NewNotificationHandler(notificationService, authService)
	adminHandler := handler.NewAdminHandler(adminService)
	wsHandler := handler.NewWSHandler(hub, zlog)

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(zlog))
	router.Use(corsMiddleware())

	// API routes
	api := router.Group("/api")
	{
		// Health check never fails, regardless of database or scheduler state
		api.GET("/health", handler.Health)

		// Auth routes (public)
		authHandler.RegisterRoutes(api)

		// Protected routes
		authMiddleware := middleware.AuthMiddleware(authService)
		portfolioHandler.RegisterRoutes(api, authMiddleware)
		tradingHandler.RegisterRoutes(api, authMiddleware)
		notificationHandler.RegisterRoutes(api, authMiddleware)

		// Admin routes
		adminMiddleware := middleware.AdminMiddleware(authService)
		adminHandler.RegisterRoutes(api, authMiddleware, adminMiddleware)
	}

	// Realtime price stream
	wsHandler.RegisterRoutes(router)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start the price refresher
	refresher.Start(context.Background())

	// Start server in goroutine
	go func() {
		zlog.Info("starting server",
			zap.String("addr", addr),
			zap.String("version", Version),
			zap.String("commit", Commit),
			zap.String("build_time", BuildTime))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")

	// Stop background refresh and disconnect realtime clients
	refresher.Stop()
	hub.Close()

	// Graceful shutdown with 10 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal("server forced to shutdown", zap.Error(err))
	}

	// Close Redis connection
	if err := rdb.Close(); err != nil {
		zlog.Warn("error closing redis connection", zap.Error(err))
	}

	zlog.Info("server exited properly")
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Trade{},
	)
}

// seedAdminUser creates the initial admin account with a random password
// when no admin user exists yet. The password is printed once.
func seedAdminUser(userRepo *repository.UserRepository, zlog *zap.Logger) error {
	admins, err := userRepo.CountAdmins()
	if err != nil {
		return err
	}
	if admins > 0 {
		return nil
	}

	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	password := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:           "admin",
		Email:              "admin@example.com",
		PasswordHash:       hash,
		IsAdmin:            true,
		EmailNotifications: true,
	}
	if err := userRepo.Create(admin); err != nil {
		return err
	}

	zlog.Info("admin user created, change this password after first login",
		zap.String("username", admin.Username),
		zap.String("password", password))
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
