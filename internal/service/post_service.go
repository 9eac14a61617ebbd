package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"leelaaverse/internal/cache"
	"leelaaverse/internal/entity"
	"leelaaverse/internal/entity/converter"
	"leelaaverse/internal/entity/db"
	"leelaaverse/internal/entity/dto"
	"leelaaverse/internal/events"
	"leelaaverse/internal/media"
	"leelaaverse/internal/metrics"
	"leelaaverse/internal/model"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const feedVersionKey = "feed:version"

// FeedCache 是 feed 缓存需要的最小能力, *cache.Cache 实现了它
type FeedCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Version(ctx context.Context, key string) (int64, error)
}

// Viewer identifies the caller of a read. The zero value is an anonymous visitor.
type Viewer struct {
	UserID  uint
	IsAdmin bool
}

// Upload is a file received from a multipart request.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// PostService 帖子服务
type PostService struct {
	repo      model.Repository
	media     MediaStore
	cache     FeedCache
	cacheTTL  time.Duration
	publisher events.Publisher
}

// NewPostService 创建帖子服务. feedCache 可以为 nil
func NewPostService(repo model.Repository, mediaStore MediaStore, feedCache FeedCache, cacheTTL time.Duration) *PostService {
	return &PostService{
		repo:      repo,
		media:     mediaStore,
		cache:     feedCache,
		cacheTTL:  cacheTTL,
		publisher: events.Nop{},
	}
}

// SetPublisher 设置领域事件发布器
func (s *PostService) SetPublisher(p events.Publisher) {
	if p == nil {
		p = events.Nop{}
	}
	s.publisher = p
}

// ListFeed returns the newest visible posts. Anonymous pages are served from the cache when one is configured.
func (s *PostService) ListFeed(ctx context.Context, viewer Viewer, query dto.FeedQuery) (*dto.FeedResponse, error) {
	query.ViewerID = viewer.UserID
	query.Normalize(20, 50)

	cacheable := s.cache != nil && s.cacheTTL > 0 && viewer.UserID == 0 && query.AuthorID == 0
	var key string
	if cacheable {
		key = s.feedKey(ctx, query)
		if key != "" {
			raw, err := s.cache.Get(ctx, key)
			if err == nil {
				var resp dto.FeedResponse
				if err := json.Unmarshal(raw, &resp); err == nil {
					metrics.FeedCacheRequests.WithLabelValues("hit").Inc()
					return &resp, nil
				}
			}
			metrics.FeedCacheRequests.WithLabelValues("miss").Inc()
		}
	}

	posts, meta, err := s.repo.ListPosts(ctx, &query)
	if err != nil {
		return nil, err
	}
	resp := &dto.FeedResponse{
		Success:    true,
		Posts:      converter.PostsToItems(posts),
		Pagination: dto.NewPagination(meta),
	}

	if key != "" {
		if raw, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
				logrus.WithError(err).Debug("failed to cache feed page")
			}
		}
	}
	return resp, nil
}

// ListUserPosts returns the posts of one author as seen by viewer.
func (s *PostService) ListUserPosts(ctx context.Context, viewer Viewer, authorID uint, query dto.FeedQuery) (*dto.FeedResponse, error) {
	if _, err := s.repo.GetUserByID(ctx, authorID); err != nil {
		return nil, err
	}
	query.AuthorID = authorID
	return s.ListFeed(ctx, viewer, query)
}

// GetPost loads a post. Posts the viewer may not see are reported as not found.
func (s *PostService) GetPost(ctx context.Context, viewer Viewer, id uint) (*dto.PostItem, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(post, viewer) {
		return nil, gorm.ErrRecordNotFound
	}

	if viewer.UserID != post.UserID {
		if err := s.repo.IncrementPostCounters(ctx, post.ID, entity.PostCounterDeltas{Views: 1}); err != nil {
			logrus.WithError(err).WithField("post_id", post.ID).Debug("failed to count view")
		} else {
			post.ViewsCount++
		}
	}

	item := converter.PostToItem(post)
	return &item, nil
}

// CreatePost creates a post from an upload, a media URL or plain text.
func (s *PostService) CreatePost(ctx context.Context, userID uint, req dto.CreatePostRequest, upload *Upload) (*dto.PostItem, error) {
	category := strings.ToLower(strings.TrimSpace(req.Category))
	visibility := strings.ToLower(strings.TrimSpace(req.Visibility))
	if visibility == "" {
		visibility = db.PostVisibilityPublic
	}
	if !db.ValidVisibility(visibility) {
		return nil, fmt.Errorf("%w: unknown visibility %q", entity.ErrInvalidPost, req.Visibility)
	}

	hasMedia := (upload != nil && len(upload.Data) > 0) || strings.TrimSpace(req.MediaURL) != ""
	if category == "" {
		category = inferCategory(upload, hasMedia)
	}
	if !db.ValidCategory(category) {
		return nil, fmt.Errorf("%w: unknown category %q", entity.ErrInvalidPost, req.Category)
	}
	if db.RequiresMedia(category) && !hasMedia {
		return nil, fmt.Errorf("%w: %s posts need a media file", entity.ErrInvalidPost, category)
	}
	caption := strings.TrimSpace(req.Caption)
	if category == db.PostCategoryText && caption == "" {
		return nil, fmt.Errorf("%w: text posts need a caption", entity.ErrInvalidPost)
	}

	var relocated *Relocation
	if hasMedia {
		r, err := s.storeMedia(ctx, userID, req.MediaURL, upload)
		if err != nil {
			return nil, err
		}
		relocated = r
	}

	post := &db.Post{
		UserID:     userID,
		Category:   category,
		Title:      strings.TrimSpace(req.Title),
		Caption:    caption,
		Visibility: visibility,
		Status:     db.PostStatusPublished,
	}
	if relocated != nil {
		post.MediaURL = relocated.PermanentURL
		post.ThumbnailURL = relocated.ThumbnailURL
		post.MediaKey = relocated.Key
	}

	if err := s.repo.CreatePost(ctx, post, req.Tags); err != nil {
		if relocated != nil {
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if discardErr := s.media.Discard(cleanupCtx, relocated.Keys()...); discardErr != nil {
				logrus.WithError(discardErr).WithField("key", relocated.Key).Error("failed to discard uploaded media")
			}
		}
		return nil, err
	}

	stored, err := s.repo.GetPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	metrics.PostsPublished.WithLabelValues("upload").Inc()
	logrus.WithFields(logrus.Fields{
		"post_id":  post.ID,
		"user_id":  userID,
		"category": category,
	}).Info("post created")

	s.InvalidateFeed(ctx)
	s.emit(ctx, events.Event{
		Type:   events.TypePostPublished,
		Key:    postKey(post.ID),
		UserID: userID,
		Data: map[string]any{
			"post_id":    post.ID,
			"category":   category,
			"visibility": visibility,
		},
	})

	item := converter.PostToItem(stored)
	return &item, nil
}

// DeletePost removes a post owned by the viewer. Admins may delete any post.
func (s *PostService) DeletePost(ctx context.Context, viewer Viewer, id uint) error {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if post.UserID != viewer.UserID && !viewer.IsAdmin {
		return entity.ErrForbidden
	}
	if err := s.repo.DeletePost(ctx, id); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"post_id": id,
		"user_id": viewer.UserID,
	}).Info("post deleted")

	s.InvalidateFeed(ctx)
	s.emit(ctx, events.Event{
		Type:   events.TypePostDeleted,
		Key:    postKey(id),
		UserID: post.UserID,
		Data:   map[string]any{"post_id": id, "deleted_by": viewer.UserID},
	})
	return nil
}

// ListTags returns the most used tags.
func (s *PostService) ListTags(ctx context.Context, limit int) (*dto.TagListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	tags, err := s.repo.ListTags(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &dto.TagListResponse{Success: true, Tags: converter.TagsToDTOs(tags)}, nil
}

// InvalidateFeed bumps the feed version so that cached pages are no longer read.
func (s *PostService) InvalidateFeed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, feedVersionKey); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		logrus.WithError(err).Warn("failed to invalidate feed cache")
	}
}

// Relocation is the stored media backing a post.
type Relocation = media.Relocated

func (s *PostService) storeMedia(ctx context.Context, userID uint, mediaURL string, upload *Upload) (*Relocation, error) {
	if upload != nil && len(upload.Data) > 0 {
		return s.media.Store(ctx, upload.Data, upload.ContentType, userID)
	}
	return s.media.Relocate(ctx, strings.TrimSpace(mediaURL), userID)
}

func (s *PostService) feedKey(ctx context.Context, query dto.FeedQuery) string {
	version, err := s.cache.Version(ctx, feedVersionKey)
	if err != nil {
		return ""
	}
	return "feed:" + cache.HashKey(
		strconv.FormatInt(version, 10),
		strings.ToLower(strings.TrimSpace(query.Category)),
		strings.ToLower(strings.TrimSpace(query.Tag)),
		strconv.FormatInt(query.Page, 10),
		strconv.FormatInt(query.PageSize, 10),
	)
}

func (s *PostService) emit(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithField("type", event.Type).Warn("failed to publish event")
	}
}

func canView(post *db.Post, viewer Viewer) bool {
	if viewer.IsAdmin || (viewer.UserID != 0 && post.UserID == viewer.UserID) {
		return true
	}
	return post.Visibility == db.PostVisibilityPublic && post.Status == db.PostStatusPublished
}

func inferCategory(upload *Upload, hasMedia bool) string {
	if !hasMedia {
		return db.PostCategoryText
	}
	if upload != nil && strings.HasPrefix(strings.ToLower(upload.ContentType), "video/") {
		return db.PostCategoryVideo
	}
	return db.PostCategoryImage
}

func postKey(id uint) string {
	return "post:" + strconv.FormatUint(uint64(id), 10)
}
