package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fcsquad/optimizer/internal/api/handlers"
	"github.com/fcsquad/optimizer/internal/catalogue"
	"github.com/fcsquad/optimizer/internal/platform/cache"
	"github.com/fcsquad/optimizer/internal/platform/config"
	"github.com/fcsquad/optimizer/internal/platform/database"
	"github.com/fcsquad/optimizer/internal/platform/logger"
	"github.com/fcsquad/optimizer/internal/websocket"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger("info", cfg.IsDevelopment())
	logger.WithService("squad-optimizer").WithFields(logrus.Fields{
		"version":     "1.0.0",
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("starting squad optimisation service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewSquadServiceConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.WithService("squad-optimizer").Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithService("squad-optimizer").Fatalf("failed to parse redis url: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithService("squad-optimizer").Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	squadCatalogue := catalogue.New(db.DB)
	ownedSet, err := catalogue.LoadOwnedSet(ctx, db.DB)
	if err != nil {
		logger.WithService("squad-optimizer").Fatalf("failed to load owned players: %v", err)
	}

	cacheService := cache.NewSquadCacheService(redisClient, structuredLogger)

	wsHub := websocket.NewHub(structuredLogger)
	go wsHub.Run()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	squadHandler := handlers.NewSquadHandler(squadCatalogue, ownedSet, cacheService, wsHub, cfg, structuredLogger)
	healthHandler := handlers.NewHealthHandler(db, redisClient, structuredLogger)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/squads/optimize", squadHandler.OptimizeSquad)
		apiV1.POST("/squads/validate", squadHandler.ValidateSquadRequest)
		apiV1.GET("/squads/cache-status", squadHandler.GetCacheStatus)
	}

	router.GET("/ws/squads/:request_id/progress", wsHub.HandleWebSocket)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)
	router.GET("/metrics", healthHandler.GetMetrics)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.WithService("squad-optimizer").WithField("port", cfg.Port).Info("squad optimisation service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithService("squad-optimizer").Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.WithService("squad-optimizer").Info("shutting down squad optimisation service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithService("squad-optimizer").Fatalf("squad optimisation service forced to shutdown: %v", err)
	}

	logger.WithService("squad-optimizer").Info("squad optimisation service exited")
}
