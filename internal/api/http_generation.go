package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"leelaaverse/internal/entity/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 2 * time.Minute

func (h *HTTPHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, h.generationService.Models())
}

func (h *HTTPHandler) GenerateImage(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var request dto.GenerateImageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		if strings.TrimSpace(request.Prompt) == "" {
			MissingField(c, "prompt")
			return
		}
		InvalidPayload(c, err)
		return
	}

	resp, err := h.generationService.Start(c.Request.Context(), requestUser.ID, request)
	if err != nil {
		respondServiceError(c, err, "failed to start image generation")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) GetGenerationStatus(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	requestID := strings.TrimSpace(c.Param("requestId"))
	if requestID == "" {
		MissingField(c, "requestId")
		return
	}

	resp, err := h.generationService.Poll(c.Request.Context(), requestUser.ID, requestID)
	if err != nil {
		respondServiceError(c, err, "failed to check generation status")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) ListGenerations(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var query dto.GenerationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.generationService.ListGenerations(ctx, requestUser.ID, query)
	if err != nil {
		respondServiceError(c, err, "failed to load generations")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) CreateFromGeneration(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var request dto.CreateFromGenerationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		if strings.TrimSpace(request.RequestID) == "" {
			MissingField(c, "requestId")
			return
		}
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), publishTimeout)
	defer cancel()

	post, err := h.generationService.Publish(ctx, requestUser.ID, request)
	if err != nil {
		respondServiceError(c, err, "failed to create post from generation")
		return
	}
	c.JSON(http.StatusCreated, dto.PostResponse{Success: true, Post: *post})
}

func (h *HTTPHandler) StreamGenerationEvents(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	clientID := strings.TrimSpace(c.Query("client_id"))
	if clientID == "" {
		clientID = uuid.NewString()
	}

	ctx := c.Request.Context()
	events := make(chan sseMessage, 8)
	h.sse.register(requestUser.ID, clientID, events)
	defer h.sse.unregister(requestUser.ID, events)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"client_id": clientID})
	if flusher, ok := c.Writer.(http.Flusher); ok {
		flusher.Flush()
	}

	heartbeatTicker := time.NewTicker(10 * time.Second)
	defer heartbeatTicker.Stop()

	log := logrus.WithFields(logrus.Fields{
		"user_id":   requestUser.ID,
		"client_id": clientID,
	})
	log.Info("generation sse connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			log.Info("generation sse disconnected")
			return false
		case <-heartbeatTicker.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().UnixMilli()})
			return true
		case msg, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(msg.event, msg.data)
			return true
		}
	})
}
