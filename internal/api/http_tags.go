package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type tagQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ListTags 按使用次数返回热门标签
func (h *HTTPHandler) ListTags(c *gin.Context) {
	var query tagQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.postService.ListTags(ctx, query.Limit)
	if err != nil {
		respondServiceError(c, err, "failed to load tags")
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	c.JSON(http.StatusOK, resp)
}
