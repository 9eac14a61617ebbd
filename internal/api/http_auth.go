package api

import (
	"context"
	"net/http"
	"time"

	"leelaaverse/internal/entity/dto"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *HTTPHandler) Register(c *gin.Context) {
	var req dto.AuthRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.userService.Register(ctx, req)
	if err != nil {
		respondServiceError(c, err, "failed to register user")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req dto.AuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.userService.Login(ctx, req)
	if err != nil {
		logrus.WithError(err).WithField("email", req.Email).Warn("login failed")
		respondServiceError(c, err, "failed to create session")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) Me(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.userService.Me(ctx, user.ID)
	if err != nil {
		respondServiceError(c, err, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, resp)
}
