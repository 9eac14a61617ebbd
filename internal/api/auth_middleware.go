package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"leelaaverse/internal/entity/db"
	"leelaaverse/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	currentUserContextKey = "current-user"
)

// RequestUser 存储请求上下文中的认证用户信息
type RequestUser struct {
	ID       uint
	Email    string
	Username string
	Role     string
}

// IsAdmin 判断用户是否具有管理员权限
func (u *RequestUser) IsAdmin() bool {
	return u != nil && u.Role == db.UserRoleAdmin
}

// Viewer converts the request user for service calls. Nil is an anonymous viewer.
func (u *RequestUser) Viewer() service.Viewer {
	if u == nil {
		return service.Viewer{}
	}
	return service.Viewer{UserID: u.ID, IsAdmin: u.IsAdmin()}
}

// AuthMiddleware JWT 认证中间件
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			Unauthorized(c, "missing or malformed authorization header")
			return
		}
		if !h.authenticate(c, tokenString) {
			return
		}
		c.Next()
	}
}

// OptionalAuth 有 token 时解析用户, 没有时按匿名访问处理
func (h *HTTPHandler) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		if !h.authenticate(c, tokenString) {
			return
		}
		c.Next()
	}
}

// authenticate 校验 token 并加载用户, 失败时已经写入响应
func (h *HTTPHandler) authenticate(c *gin.Context, tokenString string) bool {
	claims, err := h.authManager.ParseToken(tokenString)
	if err != nil {
		logrus.WithError(err).Debug("failed to parse jwt token")
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeSessionExpired, "token is invalid or expired")
		return false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Unauthorized(c, "user not found")
			return false
		}
		logrus.WithError(err).WithField("user_id", claims.UserID).Error("failed to load user")
		InternalError(c, "failed to verify user")
		return false
	}

	if !user.IsActive {
		ErrorResponse(c, http.StatusForbidden, ErrCodeUserDisabled, "user is disabled")
		return false
	}

	c.Set(currentUserContextKey, &RequestUser{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
	})
	return true
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *RequestUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*RequestUser)
	if !ok {
		return nil
	}
	return user
}
