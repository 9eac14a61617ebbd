package api

import (
	"strings"
	"time"

	"leelaaverse/internal/auth"
	"leelaaverse/internal/config"
	"leelaaverse/internal/events"
	"leelaaverse/internal/llm"
	"leelaaverse/internal/model"
	"leelaaverse/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies 由 main 组装后注入
type Dependencies struct {
	Registry  *llm.Registry
	Media     service.MediaStore
	FeedCache service.FeedCache
	Publisher events.Publisher
}

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg         config.Config
	repo        model.Repository
	authManager *auth.Manager

	// 服务层
	generationService *service.GenerationService
	postService       *service.PostService
	userService       *service.UserService

	// 健康检查
	registry    *llm.Registry
	cacheHealth healthChecker

	// SSE 客户端管理
	sse *sseHub
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, deps Dependencies) (*HTTPHandler, error) {
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}
	if err := RegisterValidators(); err != nil {
		return nil, err
	}
	if deps.Registry == nil {
		deps.Registry = llm.NewRegistry()
	}

	postSvc := service.NewPostService(repo, deps.Media, deps.FeedCache, cfg.FeedCacheTTL)
	postSvc.SetPublisher(deps.Publisher)

	generationSvc := service.NewGenerationService(repo, deps.Registry, deps.Media, cfg)
	generationSvc.SetPublisher(deps.Publisher)
	generationSvc.SetFeedInvalidator(postSvc)

	handler := &HTTPHandler{
		cfg:               cfg,
		repo:              repo,
		authManager:       authManager,
		generationService: generationSvc,
		postService:       postSvc,
		userService:       service.NewUserService(repo, authManager),
		registry:          deps.Registry,
		sse:               newSSEHub(),
	}
	if checker, ok := deps.FeedCache.(healthChecker); ok && checker != nil {
		handler.cacheHealth = checker
	}

	// 设置 SSE 通知回调
	generationSvc.SetNotifyFunc(handler.notifyGeneration)

	return handler, nil
}

// GenerationService exposes the service so main can run the sweeper.
func (h *HTTPHandler) GenerationService() *service.GenerationService {
	return h.generationService
}

// RegisterRoutes 注册全部路由
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	metricsPath := strings.TrimSpace(h.cfg.MetricsPath)
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/me", h.AuthMiddleware(), h.Me)

	users := apiGroup.Group("/users")
	users.PATCH("/me", h.AuthMiddleware(), h.UpdateProfile)
	users.GET("/:id", h.OptionalAuth(), h.GetUser)
	users.GET("/:id/posts", h.OptionalAuth(), h.ListUserPosts)

	posts := apiGroup.Group("/posts")
	posts.GET("/models", h.AuthMiddleware(), h.ListModels)
	posts.POST("/generate-image", h.AuthMiddleware(), h.GenerateImage)
	posts.GET("/generation/events", h.AuthMiddleware(), h.StreamGenerationEvents)
	posts.GET("/generation/:requestId", h.AuthMiddleware(), h.GetGenerationStatus)
	posts.GET("/generations", h.AuthMiddleware(), h.ListGenerations)
	posts.POST("/create-from-generation", h.AuthMiddleware(), h.CreateFromGeneration)
	posts.POST("", h.AuthMiddleware(), h.CreatePost)
	posts.GET("/feed", h.OptionalAuth(), h.ListFeed)
	posts.GET("/:id", h.OptionalAuth(), h.GetPost)
	posts.DELETE("/:id", h.AuthMiddleware(), h.DeletePost)

	apiGroup.GET("/tags", h.ListTags)
	apiGroup.POST("/webhooks/fal", h.FalWebhook)
}

// notifyGeneration 通知生成状态变化（用于 SSE 推送）
func (h *HTTPHandler) notifyGeneration(userID uint, event service.GenerationEvent) {
	h.sse.publish(userID, event.ClientID, sseMessage{
		event: "generation_completed",
		data:  event,
	})
}
