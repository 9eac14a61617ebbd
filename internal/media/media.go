package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leelaaverse/internal/config"
	"leelaaverse/internal/metrics"
	"leelaaverse/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrRelocationFailed covers every download or upload failure. There is no retry.
var ErrRelocationFailed = errors.New("failed to upload image to storage")

// ErrUnsupportedMedia is returned for payloads that are neither image nor video.
var ErrUnsupportedMedia = errors.New("unsupported media type")

const defaultMaxBytes int64 = 20 << 20

// Relocated describes an object copied into owned storage.
type Relocated struct {
	Key          string
	PermanentURL string
	ThumbnailKey string
	ThumbnailURL string
	ContentType  string
	Size         int64
}

// Keys returns every storage key created for this object.
func (r *Relocated) Keys() []string {
	if r == nil {
		return nil
	}
	keys := []string{r.Key}
	if r.ThumbnailKey != "" {
		keys = append(keys, r.ThumbnailKey)
	}
	return keys
}

// Service moves media into permanent storage.
type Service struct {
	store             storage.Storage
	httpClient        *http.Client
	publicBase        string
	maxBytes          int64
	thumbnailMode     string
	thumbnailWidth    int
	thumbnailTemplate string
}

func NewService(store storage.Storage, cfg config.Config) *Service {
	maxBytes := cfg.MediaMaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.ThumbnailMode))
	if mode == "" {
		mode = ThumbnailModeTransform
	}
	return &Service{
		store:             store,
		httpClient:        &http.Client{Timeout: timeout},
		publicBase:        storage.NormalisePublicBase(cfg.StoragePublicBaseURL),
		maxBytes:          maxBytes,
		thumbnailMode:     mode,
		thumbnailWidth:    cfg.ThumbnailWidth,
		thumbnailTemplate: cfg.ThumbnailURLTemplate,
	}
}

// PublicURL builds the public URL of a stored key.
func (s *Service) PublicURL(key string) string {
	return storage.PublicURL(s.publicBase, key)
}

// Relocate downloads sourceURL (http(s) or data URL) and stores it under posts/<ownerID>.
func (s *Service) Relocate(ctx context.Context, sourceURL string, ownerID uint) (*Relocated, error) {
	started := time.Now()
	log := logrus.WithFields(logrus.Fields{
		"user_id": ownerID,
		"source":  sourceForLog(sourceURL),
	})

	data, declared, err := s.fetch(ctx, sourceURL)
	if err != nil {
		metrics.MediaRelocations.WithLabelValues("download_failed").Inc()
		log.WithError(err).Warn("media relocation download failed")
		return nil, fmt.Errorf("%w: %v", ErrRelocationFailed, err)
	}

	relocated, err := s.save(ctx, data, declared, ownerID)
	if err != nil {
		metrics.MediaRelocations.WithLabelValues("upload_failed").Inc()
		log.WithError(err).Warn("media relocation upload failed")
		return nil, fmt.Errorf("%w: %v", ErrRelocationFailed, err)
	}

	metrics.MediaRelocations.WithLabelValues("success").Inc()
	metrics.MediaRelocationBytes.Observe(float64(relocated.Size))
	log.WithFields(logrus.Fields{
		"key":         relocated.Key,
		"size":        relocated.Size,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("media relocated")
	return relocated, nil
}

// Store saves an uploaded payload. Non-media payloads yield ErrUnsupportedMedia.
func (s *Service) Store(ctx context.Context, data []byte, contentType string, ownerID uint) (*Relocated, error) {
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrUnsupportedMedia, s.maxBytes)
	}
	relocated, err := s.save(ctx, data, contentType, ownerID)
	if err != nil {
		if errors.Is(err, ErrUnsupportedMedia) || errors.Is(err, storage.ErrEmptyPayload) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRelocationFailed, err)
	}
	return relocated, nil
}

// Discard deletes relocated objects. Used to compensate when the post cannot be created.
func (s *Service) Discard(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) save(ctx context.Context, data []byte, declared string, ownerID uint) (*Relocated, error) {
	if len(data) == 0 {
		return nil, storage.ErrEmptyPayload
	}
	contentType := sniffContentType(declared, data)
	if !isMediaType(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, contentType)
	}
	ext := extensionFromMime(contentType)
	if ext == "" {
		ext = "bin"
	}

	category := fmt.Sprintf("posts/%d", ownerID)
	baseName := uuid.NewString()
	key, err := s.store.Save(ctx, data, storage.SaveOptions{
		Category:    category,
		Extension:   ext,
		BaseName:    baseName,
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("save object: %w", err)
	}

	relocated := &Relocated{
		Key:          key,
		PermanentURL: s.PublicURL(key),
		ContentType:  contentType,
		Size:         int64(len(data)),
	}
	relocated.ThumbnailURL = relocated.PermanentURL

	if !strings.HasPrefix(contentType, "image/") || s.thumbnailWidth <= 0 {
		return relocated, nil
	}

	switch s.thumbnailMode {
	case ThumbnailModeOff:
	case ThumbnailModeEncode:
		thumb, err := encodeThumbnail(data, s.thumbnailWidth)
		if err != nil {
			// 缩略图失败不影响原图
			logrus.WithError(err).WithField("key", key).Warn("thumbnail encode failed")
			break
		}
		thumbKey, err := s.store.Save(ctx, thumb, storage.SaveOptions{
			Category:    category,
			Extension:   "jpg",
			BaseName:    baseName + "_thumb",
			ContentType: "image/jpeg",
		})
		if err != nil {
			logrus.WithError(err).WithField("key", key).Warn("thumbnail save failed")
			break
		}
		relocated.ThumbnailKey = thumbKey
		relocated.ThumbnailURL = s.PublicURL(thumbKey)
	default:
		relocated.ThumbnailURL = thumbnailURL(s.store, s.thumbnailTemplate, relocated.PermanentURL, s.thumbnailWidth)
	}
	return relocated, nil
}

func (s *Service) fetch(ctx context.Context, sourceURL string) ([]byte, string, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, "", errors.New("source url is empty")
	}
	if strings.HasPrefix(sourceURL, "data:") {
		data, mimeType, err := decodeDataURL(sourceURL)
		if err != nil {
			return nil, "", err
		}
		if int64(len(data)) > s.maxBytes {
			return nil, "", fmt.Errorf("payload exceeds %d bytes", s.maxBytes)
		}
		return data, mimeType, nil
	}
	if !strings.HasPrefix(sourceURL, "http://") && !strings.HasPrefix(sourceURL, "https://") {
		return nil, "", fmt.Errorf("unsupported source scheme")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download http %d", resp.StatusCode)
	}
	if resp.ContentLength > s.maxBytes {
		return nil, "", fmt.Errorf("payload exceeds %d bytes", s.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, "", fmt.Errorf("payload exceeds %d bytes", s.maxBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func sourceForLog(sourceURL string) string {
	if strings.HasPrefix(sourceURL, "data:") {
		return "inline_data_url"
	}
	if idx := strings.Index(sourceURL, "?"); idx >= 0 {
		return sourceURL[:idx]
	}
	return sourceURL
}
