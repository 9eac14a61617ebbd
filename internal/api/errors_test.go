package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"leelaaverse/internal/entity"
	"leelaaverse/internal/llm"
	"leelaaverse/internal/media"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		status         int
		code           string
		message        string
		expectedStatus int
	}{
		{name: "BadRequest", status: http.StatusBadRequest, code: ErrCodeInvalidRequest, message: "无效的请求", expectedStatus: http.StatusBadRequest},
		{name: "NotFound", status: http.StatusNotFound, code: ErrCodeNotFound, message: "帖子不存在", expectedStatus: http.StatusNotFound},
		{name: "InternalError", status: http.StatusInternalServerError, code: ErrCodeInternalError, message: "服务器内部错误", expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			ErrorResponse(c, tt.status, tt.code, tt.message)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var response APIError
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if response.Success {
				t.Error("error envelope must carry success=false")
			}
			if response.Code != tt.code || response.Message != tt.message {
				t.Errorf("unexpected envelope %+v", response)
			}
		})
	}
}

func TestHelperFunctions(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		call   func(c *gin.Context)
		status int
		code   string
	}{
		{name: "Unauthorized", call: func(c *gin.Context) { Unauthorized(c, "请先登录") }, status: http.StatusUnauthorized, code: ErrCodeUnauthorized},
		{name: "Forbidden", call: func(c *gin.Context) { Forbidden(c, "无权限") }, status: http.StatusForbidden, code: ErrCodeForbidden},
		{name: "ServiceUnavailable", call: func(c *gin.Context) { ServiceUnavailable(c, "服务不可用") }, status: http.StatusServiceUnavailable, code: ErrCodeServiceUnavailable},
		{name: "MissingField", call: func(c *gin.Context) { MissingField(c, "prompt") }, status: http.StatusBadRequest, code: ErrCodeMissingField},
		{name: "InvalidPayload", call: func(c *gin.Context) { InvalidPayload(c, errors.New("bad json")) }, status: http.StatusBadRequest, code: ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			tt.call(c)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			var response APIError
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if response.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, response.Code)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	providerErr := &llm.ProviderError{Provider: "fal", Op: "submit", StatusCode: 422, Body: `{"detail":"bad prompt"}`}

	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		wantError string
	}{
		{name: "提示词为空", err: llm.ErrPromptRequired, status: http.StatusBadRequest, code: ErrCodeMissingField},
		{name: "未知模型", err: fmt.Errorf("%w: %q", llm.ErrUnsupportedModel, "x"), status: http.StatusBadRequest, code: ErrCodeModelNotFound},
		{name: "未完成", err: entity.ErrGenerationNotCompleted, status: http.StatusBadRequest, code: ErrCodeGenerationNotCompleted},
		{name: "登录失败", err: entity.ErrInvalidCredentials, status: http.StatusUnauthorized, code: ErrCodeInvalidCredentials},
		{name: "非本人", err: entity.ErrForbidden, status: http.StatusForbidden, code: ErrCodeForbidden},
		{name: "不存在", err: fmt.Errorf("load: %w", gorm.ErrRecordNotFound), status: http.StatusNotFound, code: ErrCodeNotFound},
		{name: "重复发布", err: entity.ErrAlreadyPublished, status: http.StatusConflict, code: ErrCodeAlreadyPublished},
		{name: "邮箱重复", err: entity.ErrEmailTaken, status: http.StatusConflict, code: ErrCodeEmailExists},
		{name: "服务商错误", err: providerErr, status: http.StatusInternalServerError, code: ErrCodeProvider, wantError: `{"detail":"bad prompt"}`},
		{name: "熔断", err: fmt.Errorf("%w: fal circuit open", llm.ErrProviderUnavailable), status: http.StatusServiceUnavailable, code: ErrCodeProviderUnavailable},
		{name: "转存失败", err: fmt.Errorf("%w: timeout", media.ErrRelocationFailed), status: http.StatusInternalServerError, code: ErrCodeMediaRelocation},
		{name: "超时", err: context.DeadlineExceeded, status: http.StatusGatewayTimeout, code: ErrCodeTimeout},
		{name: "其他", err: errors.New("boom"), status: http.StatusInternalServerError, code: ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := classifyError(tt.err, "request failed")
			if status != tt.status || resp.Code != tt.code {
				t.Fatalf("got %d %s, want %d %s", status, resp.Code, tt.status, tt.code)
			}
			if tt.wantError != "" && resp.Error != tt.wantError {
				t.Fatalf("error detail = %q", resp.Error)
			}
		})
	}
}
