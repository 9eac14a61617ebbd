package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"leelaaverse/internal/api"
	"leelaaverse/internal/cache"
	"leelaaverse/internal/config"
	"leelaaverse/internal/events"
	"leelaaverse/internal/llm"
	"leelaaverse/internal/media"
	"leelaaverse/internal/model"
	"leelaaverse/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		return
	}

	// 初始化logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise repository")
		return
	}
	if err := model.SeedAdminUser(ctx, repo, cfg); err != nil {
		logrus.WithError(err).Warn("failed to seed admin user")
	}

	store, err := storage.NewStorage(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise storage")
		return
	}

	registry, err := llm.NewRegistryFromConfig(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise generation providers")
		return
	}

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	deps := api.Dependencies{
		Registry:  registry,
		Media:     media.NewService(store, cfg),
		Publisher: publisher,
	}

	redisCache, err := cache.New(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Warn("redis unavailable, feed cache disabled")
	}
	if redisCache != nil {
		defer redisCache.Close()
		deps.FeedCache = redisCache
	}

	httpHandler, err := api.NewHTTPHandler(cfg, repo, deps)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise http handler")
		return
	}

	go httpHandler.GenerationService().RunSweeper(ctx)

	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// 添加中间件
	r.Use(api.LoggingMiddleware())
	r.Use(api.CORSMiddleware(cfg.CORSOrigin))
	r.Use(gin.Recovery())

	httpHandler.RegisterRoutes(r)

	if localProvider, ok := store.(storage.LocalBaseDirProvider); ok {
		publicPrefix := strings.TrimSpace(cfg.StoragePublicBaseURL)
		if publicPrefix == "" {
			publicPrefix = "/files"
		}
		if !strings.HasPrefix(publicPrefix, "http://") && !strings.HasPrefix(publicPrefix, "https://") {
			if !strings.HasPrefix(publicPrefix, "/") {
				publicPrefix = "/" + publicPrefix
			}
			r.Static(publicPrefix, localProvider.LocalBaseDir())
		}
	}

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	// WriteTimeout 为 0, SSE 长连接不能被截断
	httpServer := &http.Server{
		Addr:              serverHost,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("服务器关闭失败")
		}
	}()

	logrus.WithField("host", serverHost).Info("服务器启动")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("服务器启动失败")
		return
	}
	logrus.Info("服务器已关闭")
}
