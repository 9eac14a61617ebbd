package api

import (
	"context"
	"net/http"
	"time"

	"leelaaverse/internal/llm"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// healthChecker 由可选依赖实现 (Redis)
type healthChecker interface {
	Health(ctx context.Context) error
}

type healthResponse struct {
	Status    string            `json:"status"`
	Cache     string            `json:"cache"`
	Providers map[string]string `json:"providers"`
}

// Health 始终返回 200; 熔断打开或 Redis 不可用时 status 为 degraded
func (h *HTTPHandler) Health(c *gin.Context) {
	resp := healthResponse{Status: "ok", Cache: "disabled", Providers: map[string]string{}}
	if h.registry != nil {
		resp.Providers = h.registry.Health()
	}
	for id, state := range resp.Providers {
		if state == llm.CircuitOpen {
			resp.Status = "degraded"
			logrus.WithField("provider", id).Warn("health: provider circuit open")
		}
	}

	if h.cacheHealth != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.cacheHealth.Health(ctx); err != nil {
			logrus.WithError(err).Warn("health: redis ping failed")
			resp.Cache = "error"
			resp.Status = "degraded"
		} else {
			resp.Cache = "ok"
		}
	}
	c.JSON(http.StatusOK, resp)
}
