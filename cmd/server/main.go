package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geogate/config"
	"geogate/internal/cache"
	"geogate/internal/filter"
	"geogate/internal/handler"
	"geogate/internal/middleware"
	"geogate/internal/repository"
	"geogate/internal/service"
	"geogate/internal/utils"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := utils.InitSnowflake(cfg.Snowflake.DatacenterID, cfg.Snowflake.WorkerID); err != nil {
		log.Fatalf("Failed to initialize Snowflake: %v", err)
	}

	repo, err := repository.NewLinkRepository(
		cfg.Postgres.DSN(),
		cfg.Postgres.MaxIdleConns,
		cfg.Postgres.MaxOpenConns,
	)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	blocklistRepo := repository.NewBlocklistRepository(repo.GetDB())

	// Redis is optional; without it the public-info cache is skipped
	// and rate limiting falls back to the in-memory store
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCache(
			cfg.Redis.Addr(),
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
		)
		if err != nil {
			log.Fatalf("Failed to initialize Redis cache: %v", err)
		}
		defer redisCache.Close()
	}

	bloomFilter := filter.NewBloomFilter(
		cfg.BloomFilter.Capacity,
		cfg.BloomFilter.FalsePositiveRate,
	)

	var infoCache service.PublicInfoCache
	if redisCache != nil {
		infoCache = redisCache
	}

	linkService := service.NewLinkService(repo, infoCache, bloomFilter)
	adminService := service.NewAdminService(repo, blocklistRepo, infoCache, bloomFilter)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := linkService.WarmBloomFilter(ctx); err != nil {
		log.Printf("Warning: failed to warm bloom filter: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()

	// Perimeter gate: blocklist first, then rate admission. Rejected
	// requests never reach a handler, so they never touch link state.
	ipBlocker := middleware.NewIPBlocker(
		blocklistRepo,
		time.Duration(cfg.Blocklist.RefreshInterval)*time.Second,
	)
	defer ipBlocker.Close()
	router.Use(ipBlocker.Middleware())

	adminGate := setupRateLimit(cfg, redisCache, router)

	linkHandler := handler.NewLinkHandler(linkService)
	adminHandler := handler.NewAdminHandler(adminService)

	router.GET("/health", linkHandler.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/public/:short_code", linkHandler.PublicInfo)
		api.POST("/verify/:short_code", linkHandler.Verify)

		admin := api.Group("")
		if adminGate != nil {
			admin.Use(adminGate)
		}
		{
			admin.POST("/links", adminHandler.CreateLink)
			admin.GET("/links", adminHandler.ListLinks)
			admin.GET("/links/:id", adminHandler.GetLink)
			admin.PUT("/links/:id", adminHandler.UpdateLink)
			admin.DELETE("/links/:id", adminHandler.DeleteLink)
			admin.POST("/links/:id/restore", adminHandler.RestoreLink)
			admin.GET("/links/:id/stats", adminHandler.LinkStats)
			admin.GET("/links/:id/logs", adminHandler.LinkAccessLogs)

			admin.GET("/blocked-ips", adminHandler.ListBlockedIPs)
			admin.POST("/blocked-ips", adminHandler.BlockIP)
			admin.DELETE("/blocked-ips/:ip", adminHandler.UnblockIP)
		}
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("Server starting on port %d...", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// setupRateLimit wires the global ceiling onto the router and returns
// the tighter admin-surface gate, if rate limiting is enabled.
func setupRateLimit(cfg *config.Config, redisCache *cache.RedisCache, router *gin.Engine) gin.HandlerFunc {
	if !cfg.RateLimit.Enabled {
		return nil
	}

	if redisCache == nil {
		log.Println("Rate limiting enabled with in-memory token buckets")
		general := middleware.NewMemoryLimiter(
			cfg.RateLimit.MemoryRPS,
			cfg.RateLimit.MemoryBurst,
			middleware.WithSkipFunc(middleware.SkipHealthCheck),
		)
		router.Use(general.Middleware())

		adminRPS := float64(cfg.RateLimit.Admin.Limit) / float64(cfg.RateLimit.Admin.Window)
		admin := middleware.NewMemoryLimiter(adminRPS, cfg.RateLimit.Admin.Limit)
		return admin.Middleware()
	}

	log.Println("Rate limiting enabled with strategy:", cfg.RateLimit.Strategy)

	var strategy middleware.RateLimitStrategy
	switch cfg.RateLimit.Strategy {
	case "fixed_window":
		strategy = middleware.FixedWindow
	case "token_bucket":
		strategy = middleware.TokenBucket
	default:
		strategy = middleware.SlidingWindow
	}

	general := middleware.NewRateLimiter(redisCache.GetClient(), &middleware.RateLimitConfig{
		Class:    "general",
		Strategy: strategy,
		Limit:    cfg.RateLimit.General.Limit,
		Window:   time.Duration(cfg.RateLimit.General.Window) * time.Second,
		SkipFunc: middleware.SkipHealthCheck,
	})
	router.Use(general.Middleware())

	admin := middleware.NewRateLimiter(redisCache.GetClient(), &middleware.RateLimitConfig{
		Class:    "admin",
		Strategy: strategy,
		Limit:    cfg.RateLimit.Admin.Limit,
		Window:   time.Duration(cfg.RateLimit.Admin.Window) * time.Second,
	})
	return admin.Middleware()
}
