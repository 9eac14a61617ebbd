package storage

import (
	"errors"
	"fmt"
	"strings"

	"leelaaverse/internal/config"

	"github.com/sirupsen/logrus"
)

// r2Endpoint 显式 endpoint 优先, 否则由 account id 推导
func r2Endpoint(endpoint, accountID string) (string, error) {
	if endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/"); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		return endpoint, nil
	}
	if accountID = strings.TrimSpace(accountID); accountID != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID), nil
	}
	return "", errors.New("storage: missing R2 endpoint or account id")
}

// NewR2Storage builds a Cloudflare R2 backend on the S3 client. R2 has no
// image processing directive, thumbnails fall back to THUMBNAIL_URL_TEMPLATE.
func NewR2Storage(cfg config.Config) (Storage, error) {
	bucket := strings.TrimSpace(cfg.StorageR2Bucket)
	if bucket == "" {
		return nil, errors.New("storage: missing R2 bucket")
	}
	accessKey := strings.TrimSpace(cfg.StorageR2AccessKeyID)
	secretKey := strings.TrimSpace(cfg.StorageR2SecretAccessKey)
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("storage: missing R2 credentials")
	}
	endpoint, err := r2Endpoint(cfg.StorageR2Endpoint, cfg.StorageR2AccountID)
	if err != nil {
		return nil, err
	}
	region := strings.TrimSpace(cfg.StorageR2Region)
	if region == "" {
		region = "auto"
	}

	client, err := newS3Client(s3ClientOptions{
		Region:          region,
		Endpoint:        endpoint,
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		ForcePathStyle:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create R2 client: %w", err)
	}

	logrus.WithFields(logrus.Fields{"bucket": bucket, "endpoint": endpoint}).Info("R2 storage enabled")
	return &remoteS3Storage{
		client:       client,
		bucket:       bucket,
		prefix:       trimPrefix(cfg.StorageR2Prefix),
		cacheControl: immutableCacheControl,
	}, nil
}
