package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leelaaverse/internal/config"
)

const (
	// TypeLocal 表示本地文件系统存储。
	TypeLocal = "local"
	// TypeS3 表示 Amazon S3 或兼容的存储后端。
	TypeS3 = "s3"
	// TypeOSS 表示阿里云 OSS 存储。
	TypeOSS = "oss"
	// TypeCOS 表示腾讯云 COS 存储。
	TypeCOS = "cos"
	// TypeR2 表示 Cloudflare R2 存储。
	TypeR2 = "r2"
)

// ErrEmptyPayload is returned when Save receives no bytes.
var ErrEmptyPayload = errors.New("empty payload")

// SaveOptions 控制存储后端如何持久化文件。
//
// Category 用于组织对象路径，可以包含 "/" 分隔的多级目录（例如 posts/42）。
// Extension 提示首选的文件扩展名（不含前导点）。
type SaveOptions struct {
	Category    string
	Extension   string
	BaseName    string
	ContentType string
}

// Storage 是持久化二进制数据并返回对象 key 的抽象（本地存储为相对路径）。
type Storage interface {
	Save(ctx context.Context, data []byte, opts SaveOptions) (string, error)
	Delete(ctx context.Context, key string) error
}

// LocalBaseDirProvider 由暴露可通过 HTTP 直接提供服务的本地目录的存储驱动实现。
type LocalBaseDirProvider interface {
	LocalBaseDir() string
}

// ThumbnailDirectiveProvider 由支持在 URL 上进行图片处理的后端实现。
// 返回值是追加在对象 URL 查询串中的处理指令。
type ThumbnailDirectiveProvider interface {
	ThumbnailDirective(width int) string
}

// NewStorage 根据配置实例化存储后端。
func NewStorage(cfg config.Config) (Storage, error) {
	typeName := strings.ToLower(strings.TrimSpace(cfg.StorageType))
	switch typeName {
	case "", TypeLocal:
		return NewLocalStorage(cfg.StorageLocalDir)
	case TypeS3:
		return NewS3Storage(cfg)
	case TypeOSS:
		return NewOSSStorage(cfg)
	case TypeCOS:
		return NewCOSStorage(cfg)
	case TypeR2:
		return NewR2Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}

func checkSave(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyPayload
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}
