package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"punchcard_backend/internal/database"
	"punchcard_backend/internal/metrics"
	"punchcard_backend/internal/middleware"
	"punchcard_backend/internal/repositories"
	"punchcard_backend/internal/router"
	"punchcard_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	envErr := godotenv.Load()

	// Warnings raised while reading config go through zerolog's default logger.
	cfg := loadConfig()

	// Initialize Logger
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		utils.LogWarn("Could not load .env file", map[string]interface{}{"error": envErr.Error()})
	}
	utils.LogInfo("Configuration loaded", map[string]interface{}{
		"storage":           cfg.StorageDriver,
		"redemption_policy": cfg.Policy.Redemption,
		"punch_cooldown":    cfg.Policy.PunchCooldown.String(),
		"history_limit":     cfg.Policy.HistoryLimit,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store repositories.Store
	switch cfg.StorageDriver {
	case storageDriverMemory:
		store = repositories.NewMemoryStore().Store()
		utils.LogWarn("Using in-memory storage, data is lost on restart")
	case storageDriverPostgres:
		db, err := database.InitDB(ctx, cfg.DB)
		if err != nil {
			utils.LogError(err, "Failed to initialize database")
			os.Exit(1)
		}
		defer db.Close()
		store = repositories.NewPostgresStore(db)
		utils.LogInfo("Database initialized", map[string]interface{}{"host": cfg.DB.Host, "name": cfg.DB.Name})
	default:
		utils.LogError(errors.New("unknown STORAGE_DRIVER"), "Invalid configuration", map[string]interface{}{"value": cfg.StorageDriver})
		os.Exit(1)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(utils.GinLogger())

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		engine.Use(m.GinMiddleware())
	}

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	engine.Use(cors.New(corsConfig))

	engine.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))

	// Setup all application routes
	router.Setup(engine, store, cfg.Policy, m)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError(err, "Failed to start server")
			stop()
		}
	}()

	<-ctx.Done()
	utils.LogInfo("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError(err, "Graceful shutdown failed")
	}
	utils.LogInfo("Server stopped")
}
