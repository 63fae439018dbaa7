// Package main runs the background worker: queued report exports and the periodic
// reminder and email run.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/helpinghands/console/config"
	"github.com/helpinghands/console/internal/apiclient"
	"github.com/helpinghands/console/internal/auth"
	"github.com/helpinghands/console/internal/notifications"
	"github.com/helpinghands/console/internal/realtime"
	"github.com/helpinghands/console/internal/reports"
	"github.com/helpinghands/console/pkg/database"
	"github.com/helpinghands/console/pkg/queue"
	"github.com/helpinghands/console/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ReportsBucket:        cfg.AWS.ReportsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	api := apiclient.New(apiclient.Config{
		BaseURL:      cfg.Backend.BaseURL,
		Timeout:      time.Duration(cfg.Backend.TimeoutSec) * time.Second,
		ServiceToken: cfg.Backend.ServiceToken,
		Location:     cfg.Backend.Location(),
	}, logger)

	jwtService := auth.NewJWTService(auth.Options{
		Secret: cfg.JWT.Secret,
		TTL:    time.Duration(cfg.JWT.WorkerTokenMin) * time.Minute,
		Issuer: cfg.JWT.Issuer,
		Leeway: time.Duration(cfg.JWT.LeewaySec) * time.Second,
	})
	jobQueue := queue.NewQueue(rdb.Client, logger)
	reportSvc := reports.NewService(api, reports.NewRepository(pool), s3Client, jobQueue, logger)
	processor := reports.NewProcessor(reportSvc, jobQueue, jwtService.Generate, realtime.NewRedisPubSub(rdb.Client, logger), logger)

	notifySvc := notifications.NewService(api, logger)
	notifySvc.SetHistory(notifications.NewRepository(pool))
	runner := notifications.NewRunner(
		notifySvc,
		time.Duration(cfg.Notifications.IntervalMin)*time.Minute,
		logger,
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g errgroup.Group
	g.Go(func() error { processor.Run(workerCtx); return nil })
	g.Go(func() error { runner.Run(workerCtx); return nil })
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	_ = g.Wait()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
