package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leelaaverse/internal/entity/dto"

	"github.com/gin-gonic/gin"
)

func (h *HTTPHandler) UpdateProfile(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req dto.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.userService.UpdateProfile(ctx, user.ID, req)
	if err != nil {
		respondServiceError(c, err, "failed to update profile")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.userService.GetUser(ctx, CurrentUser(c).Viewer(), id)
	if err != nil {
		respondServiceError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) ListUserPosts(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var query dto.FeedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.postService.ListUserPosts(ctx, CurrentUser(c).Viewer(), id, query)
	if err != nil {
		respondServiceError(c, err, "failed to load posts")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// parseIDParam 解析路径中的数字 id, 失败时已写入 400
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, ErrCodeInvalidRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
