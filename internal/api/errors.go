package api

import (
	"context"
	"errors"
	"net/http"

	"leelaaverse/internal/auth"
	"leelaaverse/internal/entity"
	"leelaaverse/internal/llm"
	"leelaaverse/internal/media"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 错误码定义
const (
	// 通用错误码
	ErrCodeInvalidRequest     = "ERR_INVALID_REQUEST"
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeNotFound           = "ERR_NOT_FOUND"
	ErrCodeConflict           = "ERR_CONFLICT"
	ErrCodeInternalError      = "ERR_INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
	ErrCodeTimeout            = "ERR_TIMEOUT"

	// 认证错误码
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	ErrCodeEmailExists        = "ERR_EMAIL_EXISTS"
	ErrCodeUsernameExists     = "ERR_USERNAME_EXISTS"
	ErrCodeUserDisabled       = "ERR_USER_DISABLED"
	ErrCodeSessionExpired     = "ERR_SESSION_EXPIRED"

	// 生成与帖子
	ErrCodeMissingField           = "ERR_MISSING_FIELD"
	ErrCodeModelNotFound          = "ERR_MODEL_NOT_FOUND"
	ErrCodeProvider               = "ERR_PROVIDER"
	ErrCodeProviderUnavailable    = "ERR_PROVIDER_UNAVAILABLE"
	ErrCodeGenerationNotCompleted = "ERR_GENERATION_NOT_COMPLETED"
	ErrCodeAlreadyPublished       = "ERR_ALREADY_PUBLISHED"
	ErrCodeInvalidPost            = "ERR_INVALID_POST"
	ErrCodeUnsupportedMedia       = "ERR_UNSUPPORTED_MEDIA"
	ErrCodeMediaRelocation        = "ERR_MEDIA_RELOCATION"
)

// APIError 统一的 API 错误响应结构
type APIError struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse 返回统一格式的错误响应
func ErrorResponse(c *gin.Context, status int, code string, message string) {
	c.AbortWithStatusJSON(status, APIError{
		Code:    code,
		Message: message,
	})
}

// ErrorResponseWithDetails 返回带详情的错误响应
func ErrorResponseWithDetails(c *gin.Context, status int, code string, message string, details any) {
	c.AbortWithStatusJSON(status, APIError{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// 常用错误响应快捷函数

// BadRequest 400 错误请求
func BadRequest(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401 未授权
func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden 403 禁止访问
func Forbidden(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound 404 资源不存在
func NotFound(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusNotFound, code, message)
}

// InternalError 500 服务器内部错误
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable 503 服务不可用
func ServiceUnavailable(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// MissingField 缺少必填字段
func MissingField(c *gin.Context, field string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeMissingField, field+" is required", gin.H{"field": field})
}

// InvalidPayload 无效的请求体
func InvalidPayload(c *gin.Context, err error) {
	resp := APIError{Code: ErrCodeInvalidRequest, Message: "invalid request payload"}
	if err != nil {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

// respondServiceError 把服务层错误映射为 HTTP 响应
func respondServiceError(c *gin.Context, err error, message string) {
	status, resp := classifyError(err, message)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"path":   c.FullPath(),
			"status": status,
		}).Error(message)
	}
	c.AbortWithStatusJSON(status, resp)
}

func classifyError(err error, message string) (int, APIError) {
	var providerErr *llm.ProviderError

	switch {
	case errors.Is(err, llm.ErrPromptRequired):
		return http.StatusBadRequest, APIError{Code: ErrCodeMissingField, Message: err.Error(), Details: gin.H{"field": "prompt"}}
	case errors.Is(err, llm.ErrUnsupportedModel):
		return http.StatusBadRequest, APIError{Code: ErrCodeModelNotFound, Message: err.Error()}
	case errors.Is(err, entity.ErrGenerationNotCompleted):
		return http.StatusBadRequest, APIError{Code: ErrCodeGenerationNotCompleted, Message: "generation is not completed"}
	case errors.Is(err, entity.ErrInvalidPost):
		return http.StatusBadRequest, APIError{Code: ErrCodeInvalidPost, Message: err.Error()}
	case errors.Is(err, media.ErrUnsupportedMedia):
		return http.StatusBadRequest, APIError{Code: ErrCodeUnsupportedMedia, Message: err.Error()}
	case errors.Is(err, auth.ErrPasswordEmpty), errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest, APIError{Code: ErrCodeInvalidRequest, Message: err.Error()}

	case errors.Is(err, entity.ErrInvalidCredentials):
		return http.StatusUnauthorized, APIError{Code: ErrCodeInvalidCredentials, Message: "invalid email or password"}

	case errors.Is(err, entity.ErrUserDisabled):
		return http.StatusForbidden, APIError{Code: ErrCodeUserDisabled, Message: "user is disabled"}
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden, APIError{Code: ErrCodeForbidden, Message: "you do not have access to this resource"}

	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, APIError{Code: ErrCodeNotFound, Message: "resource not found"}

	case errors.Is(err, entity.ErrAlreadyPublished):
		return http.StatusConflict, APIError{Code: ErrCodeAlreadyPublished, Message: "generation already published"}
	case errors.Is(err, entity.ErrEmailTaken):
		return http.StatusConflict, APIError{Code: ErrCodeEmailExists, Message: "email already registered"}
	case errors.Is(err, entity.ErrUsernameTaken):
		return http.StatusConflict, APIError{Code: ErrCodeUsernameExists, Message: "username already taken"}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, APIError{Code: ErrCodeConflict, Message: "resource already exists"}

	case errors.Is(err, llm.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, APIError{Code: ErrCodeProviderUnavailable, Message: "generation provider temporarily unavailable", Error: err.Error()}
	case errors.As(err, &providerErr):
		detail := providerErr.Body
		if detail == "" {
			detail = providerErr.Error()
		}
		return http.StatusInternalServerError, APIError{Code: ErrCodeProvider, Message: message, Error: detail}
	case errors.Is(err, media.ErrRelocationFailed):
		return http.StatusInternalServerError, APIError{Code: ErrCodeMediaRelocation, Message: media.ErrRelocationFailed.Error(), Error: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, APIError{Code: ErrCodeTimeout, Message: "upstream request timed out"}
	}

	return http.StatusInternalServerError, APIError{Code: ErrCodeInternalError, Message: message}
}
