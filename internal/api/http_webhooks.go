package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"leelaaverse/internal/llm"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxWebhookBody = 1 << 20

// FalWebhook 接收 fal.ai 的任务完成回调
func (h *HTTPHandler) FalWebhook(c *gin.Context) {
	if !h.webhookAuthorised(c) {
		Unauthorized(c, "invalid webhook token")
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		InvalidPayload(c, err)
		return
	}
	event, err := llm.ParseFalWebhook(body)
	if err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	log := logrus.WithFields(logrus.Fields{
		"job_id": event.JobID,
		"phase":  event.Phase,
	})
	if err := h.generationService.HandleWebhook(ctx, event); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 未知任务直接确认, 避免回调方重试
			log.Warn("webhook for unknown generation")
			c.JSON(http.StatusOK, gin.H{"success": true, "ignored": true})
			return
		}
		respondServiceError(c, err, "failed to apply webhook")
		return
	}

	log.Debug("webhook applied")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// webhookAuthorised 未配置密钥时接受所有回调
func (h *HTTPHandler) webhookAuthorised(c *gin.Context) bool {
	secret := strings.TrimSpace(h.cfg.FalWebhookSecret)
	if secret == "" {
		return true
	}
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token = strings.TrimSpace(c.GetHeader("X-Webhook-Token"))
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
