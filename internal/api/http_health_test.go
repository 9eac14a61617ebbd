package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leelaaverse/internal/config"
	"leelaaverse/internal/llm"
	"leelaaverse/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// pingCache 只实现健康检查相关行为
type pingCache struct {
	err error
}

func (c *pingCache) Get(context.Context, string) ([]byte, error) { return nil, c.err }
func (c *pingCache) Set(context.Context, string, []byte, time.Duration) error {
	return c.err
}
func (c *pingCache) Incr(context.Context, string) (int64, error)    { return 0, c.err }
func (c *pingCache) Version(context.Context, string) (int64, error) { return 0, c.err }
func (c *pingCache) Health(context.Context) error                   { return c.err }

func TestHealthReport(t *testing.T) {
	tests := []struct {
		name       string
		cache      *pingCache
		wantStatus string
		wantCache  string
	}{
		{name: "无缓存", wantStatus: "ok", wantCache: "disabled"},
		{name: "缓存正常", cache: &pingCache{}, wantStatus: "ok", wantCache: "ok"},
		{name: "缓存不可用", cache: &pingCache{err: errors.New("connection refused")}, wantStatus: "degraded", wantCache: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			repo, err := model.NewInMemoryRepository()
			if err != nil {
				t.Fatalf("repository: %v", err)
			}
			deps := Dependencies{Registry: llm.NewRegistry(&stubProvider{})}
			if tt.cache != nil {
				deps.FeedCache = tt.cache
			}
			handler, err := NewHTTPHandler(config.Config{JWTSecret: "test-secret", JWTExpirationMinutes: 60}, repo, deps)
			if err != nil {
				t.Fatalf("handler: %v", err)
			}
			r := gin.New()
			handler.RegisterRoutes(r)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status code = %d", w.Code)
			}
			var resp healthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantStatus || resp.Cache != tt.wantCache {
				t.Fatalf("health = %+v", resp)
			}
			if resp.Providers["stub"] != "ok" {
				t.Fatalf("providers = %v", resp.Providers)
			}
		})
	}
}
