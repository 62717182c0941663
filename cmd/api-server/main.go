package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"bookhub/database"
	"bookhub/internal/cache"
	"bookhub/internal/config"
	"bookhub/internal/http-api/handler"
	"bookhub/internal/http-api/middleware"
	"bookhub/internal/http-api/repository"
	"bookhub/internal/http-api/service"
)

func main() {
	// 1. Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := newLogger(cfg)

	// 2. Connect to the database
	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}

	// 3. Optional redis cache for book reads; a nil cache is a no-op
	var bookCache *cache.BookCache
	if cfg.RedisURL != "" {
		bookCache, err = cache.NewBookCache(cfg.RedisURL, cfg.RedisPassword, time.Duration(cfg.CacheTTL)*time.Second)
		if err != nil {
			logger.Warn("redis unavailable, running without book cache", "error", err)
			bookCache = nil
		}
	}

	// 4. Wire repositories, services, handlers
	bookRepo := repository.NewBookRepo(db)
	copyRepo := repository.NewCopyRepo(db)
	borrowRepo := repository.NewBorrowRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	authorRepo := repository.NewAuthorRepo(db)
	userRepo := repository.NewUserRepo(db)

	if err := service.EnsureAdminUser(context.Background(), userRepo, cfg, logger); err != nil {
		log.Fatalf("could not seed admin user: %v", err)
	}

	bookSvc := service.NewBookService(bookRepo, copyRepo, bookCache)
	circulationSvc := service.NewCirculationService(bookRepo, copyRepo, borrowRepo, userRepo, cfg.DefaultBorrowLimit)
	categorySvc := service.NewCategoryService(categoryRepo)
	authorSvc := service.NewAuthorService(authorRepo)
	authSvc := service.NewAuthService(userRepo, cfg)

	authMW := middleware.AuthMiddleware(authSvc)

	// 5. Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))

	r.GET("/check-conn", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"message": "API is alive and database connected",
		})
	})

	api := r.Group("/api/v1")
	handler.NewAuthHandler(authSvc).RegisterRoutes(api.Group("/auth"))
	booksGroup := api.Group("/books")
	handler.NewCirculationHandler(circulationSvc).RegisterRoutes(booksGroup, authMW)
	handler.NewBookHandler(bookSvc).RegisterRoutes(booksGroup, authMW)
	handler.NewCategoryHandler(categorySvc).RegisterRoutes(api.Group("/categories"), authMW)
	handler.NewAuthorHandler(authorSvc).RegisterRoutes(api.Group("/authors"), authMW)

	httpServer := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("server starting", "addr", httpServer)
	if err := r.Run(httpServer); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
