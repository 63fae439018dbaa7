// Package main runs the volunteer console HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/helpinghands/console/config"
	"github.com/helpinghands/console/internal/apiclient"
	"github.com/helpinghands/console/internal/auth"
	"github.com/helpinghands/console/internal/dashboard"
	"github.com/helpinghands/console/internal/middleware"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/internal/notifications"
	"github.com/helpinghands/console/internal/profile"
	"github.com/helpinghands/console/internal/realtime"
	"github.com/helpinghands/console/internal/reports"
	"github.com/helpinghands/console/internal/support"
	"github.com/helpinghands/console/pkg/database"
	"github.com/helpinghands/console/pkg/queue"
	"github.com/helpinghands/console/pkg/redis"
	"github.com/helpinghands/console/pkg/response"
	"github.com/helpinghands/console/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.Pool(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Left as a nil interface when S3 is not configured so reports fall back to download-only.
	var archive reports.Archive
	if cfg.AWS.Region != "" && cfg.AWS.ReportsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ReportsBucket:        cfg.AWS.ReportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			archive = s3Client
		}
	}

	jwtService := auth.NewJWTService(auth.Options{
		Secret: cfg.JWT.Secret,
		TTL:    time.Duration(cfg.JWT.WorkerTokenMin) * time.Minute,
		Issuer: cfg.JWT.Issuer,
		Leeway: time.Duration(cfg.JWT.LeewaySec) * time.Second,
	})
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	api := apiclient.New(apiclient.Config{
		BaseURL:      cfg.Backend.BaseURL,
		Timeout:      time.Duration(cfg.Backend.TimeoutSec) * time.Second,
		ServiceToken: cfg.Backend.ServiceToken,
		Location:     cfg.Backend.Location(),
	}, logger)

	// Reports (export history in Postgres, files in S3, async jobs on the Redis queue)
	reportRepo := reports.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	reportSvc := reports.NewService(api, reportRepo, archive, jobQueue, logger)
	reportHandler := reports.NewHandler(reportSvc)

	notifySvc := notifications.NewService(api, logger)
	notifySvc.SetHistory(notifications.NewRepository(pool))

	dashboardHandler := dashboard.NewHandler(api, rdb, reportSvc, notifySvc, hub, dashboard.Options{
		PageSize:        cfg.Lists.DefaultPageSize,
		AuditPageSize:   cfg.Lists.AuditPageSize,
		LoadConcurrency: cfg.Lists.LoadConcurrency,
		CollectionTTL:   time.Duration(cfg.Cache.CollectionTTLSec) * time.Second,
		ViewStateTTL:    time.Duration(cfg.Cache.ViewStateTTLSec) * time.Second,
	}, logger)

	profileHandler := profile.NewHandler(api, rdb, reportSvc, profile.Options{
		PageSize:         cfg.Lists.DefaultPageSize,
		LoginURL:         cfg.Server.LoginURL,
		LoginRedirectSec: cfg.Server.LoginRedirectSec,
		SessionTTL:       time.Duration(cfg.Cache.SessionTTLSec) * time.Second,
		ViewStateTTL:     time.Duration(cfg.Cache.ViewStateTTLSec) * time.Second,
	}, logger)

	supportHandler := support.NewHandler(api, rdb, hub, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.Origins()))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public: certificate verification and the support form (token optional)
	router.GET("/api/certificates/:code", reportHandler.VerifyCertificate)
	supportHandler.Register(router.Group("/api/support", middleware.OptionalJWT(jwtService)))

	// Protected API (JWT required)
	protected := router.Group("/api")
	protected.Use(middleware.JWT(jwtService))
	{
		profileHandler.Register(protected.Group("/profile"))

		protected.GET("/reports", reportHandler.List)
		protected.GET("/reports/:id/download", reportHandler.Download)

		dashboardHandler.Register(protected.Group("/admin", middleware.RequireRole(models.RoleAdmin)))
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, jwtService, cfg.Server.Origins()))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
