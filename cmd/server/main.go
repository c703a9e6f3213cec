// Package main runs the emulated backend over HTTP with WebSocket auth events
// and graceful shutdown.
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

	"github.com/evently-demo/backend/config"
	"github.com/evently-demo/backend/internal/app"
	"github.com/evently-demo/backend/internal/auth"
	"github.com/evently-demo/backend/internal/client"
	"github.com/evently-demo/backend/internal/debug"
	"github.com/evently-demo/backend/internal/middleware"
	"github.com/evently-demo/backend/internal/objects"
	"github.com/evently-demo/backend/internal/realtime"
	"github.com/evently-demo/backend/internal/tables"
	"github.com/evently-demo/backend/pkg/response"
	"github.com/evently-demo/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	backing, err := app.OpenBacking(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}
	defer backing.Close()

	var objectStore storage.ObjectStore = storage.NewMemoryObjectStore(cfg.Server.PublicURL)
	if cfg.AWS.AvatarsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			PublicBaseURL:   cfg.AWS.PublicBaseURL,
			Buckets:         map[string]string{storage.BucketAvatars: cfg.AWS.AvatarsBucket},
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, keeping uploads in memory", zap.Error(err))
		} else {
			objectStore = s3Client
		}
	}

	backend := client.New(ctx, client.Deps{
		Medium:          backing.Medium,
		KeyPrefix:       cfg.Store.KeyPrefix,
		Logger:          logger,
		Objects:         objectStore,
		SessionTTL:      cfg.Auth.SessionTTL(),
		JWTSecret:       cfg.Auth.JWTSecret,
		VerifyPasswords: cfg.Auth.VerifyPasswords,
	})

	hub := realtime.NewHub(logger)
	hub.Attach(backend.Auth)

	bridgeCtx, stopBridge := context.WithCancel(ctx)
	defer stopBridge()
	if backing.Redis != nil {
		bridge := realtime.NewRedisPubSub(backing.Redis.Client, cfg.Store.KeyPrefix, logger)
		if _, err := bridge.Bridge(bridgeCtx, backend.Auth); err != nil {
			logger.Warn("auth event bridge disabled", zap.Error(err))
		} else {
			logger.Info("auth event bridge started", zap.String("channel", bridge.Channel()))
		}
	}

	wsValidate := func(ctx context.Context, token string) (string, error) {
		claims, err := backend.Auth.VerifyAccessToken(ctx, token)
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok", "mode": cfg.Mode}) })

	// Tables
	tables.NewHandler(backend, logger).Register(router.Group("/rest/v1"))

	// Auth
	authGroup := router.Group("/auth/v1")
	auth.NewHandler(backend.Auth, logger).Register(authGroup)
	authGroup.GET("/events", realtime.ServeWs(hub, logger, wsValidate))

	// Storage (uploads need a session token)
	objects.NewHandler(backend.Storage, logger).Register(router.Group("/storage/v1"), middleware.JWT(backend.Auth))

	// Recovery probes
	debug.NewHandler(backend, logger).Register(router.Group("/debug"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("medium", cfg.Store.Medium))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopBridge()
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
