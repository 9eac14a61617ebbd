package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"leelaaverse/internal/entity/dto"
	"leelaaverse/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *HTTPHandler) ListFeed(c *gin.Context) {
	var query dto.FeedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.postService.ListFeed(ctx, CurrentUser(c).Viewer(), query)
	if err != nil {
		respondServiceError(c, err, "failed to load feed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) GetPost(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	post, err := h.postService.GetPost(ctx, CurrentUser(c).Viewer(), id)
	if err != nil {
		respondServiceError(c, err, "failed to load post")
		return
	}
	c.JSON(http.StatusOK, dto.PostResponse{Success: true, Post: *post})
}

func (h *HTTPHandler) DeletePost(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.postService.DeletePost(ctx, requestUser.Viewer(), id); err != nil {
		respondServiceError(c, err, "failed to delete post")
		return
	}
	c.Status(http.StatusNoContent)
}

// CreatePost 支持 multipart 上传和 JSON 文本帖子两种格式
func (h *HTTPHandler) CreatePost(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var (
		req    dto.CreatePostRequest
		upload *service.Upload
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			InvalidPayload(c, err)
			return
		}
		req.Tags = splitTags(req.Tags)

		var ok bool
		upload, ok = h.readUpload(c)
		if !ok {
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), publishTimeout)
	defer cancel()

	post, err := h.postService.CreatePost(ctx, requestUser.ID, req, upload)
	if err != nil {
		respondServiceError(c, err, "failed to create post")
		return
	}
	c.JSON(http.StatusCreated, dto.PostResponse{Success: true, Post: *post})
}

// readUpload 读取 file 字段, 没有文件时返回 nil
func (h *HTTPHandler) readUpload(c *gin.Context) (*service.Upload, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, true
		}
		InvalidPayload(c, err)
		return nil, false
	}

	limit := h.cfg.MediaMaxBytes
	if limit <= 0 {
		limit = 20 << 20
	}
	if header.Size > limit {
		ErrorResponse(c, http.StatusRequestEntityTooLarge, ErrCodeUnsupportedMedia, "file is too large")
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		InvalidPayload(c, err)
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		InvalidPayload(c, err)
		return nil, false
	}
	if int64(len(data)) > limit {
		ErrorResponse(c, http.StatusRequestEntityTooLarge, ErrCodeUnsupportedMedia, "file is too large")
		return nil, false
	}

	return &service.Upload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, true
}

// splitTags 兼容 "a,b" 与重复字段两种写法
func splitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				tags = append(tags, trimmed)
			}
		}
	}
	return tags
}
