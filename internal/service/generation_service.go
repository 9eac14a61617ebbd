package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leelaaverse/internal/config"
	"leelaaverse/internal/entity"
	"leelaaverse/internal/entity/converter"
	"leelaaverse/internal/entity/db"
	"leelaaverse/internal/entity/dto"
	"leelaaverse/internal/events"
	"leelaaverse/internal/llm"
	"leelaaverse/internal/media"
	"leelaaverse/internal/metrics"
	"leelaaverse/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const staleGenerationMessage = "generation timed out"

// MediaStore 媒体转存
type MediaStore interface {
	Relocate(ctx context.Context, sourceURL string, ownerID uint) (*media.Relocated, error)
	Store(ctx context.Context, data []byte, contentType string, ownerID uint) (*media.Relocated, error)
	Discard(ctx context.Context, keys ...string) error
}

// FeedInvalidator drops cached feed pages after a write.
type FeedInvalidator interface {
	InvalidateFeed(ctx context.Context)
}

// GenerationEvent 推送给客户端的生成状态变化
type GenerationEvent struct {
	RequestID    string `json:"requestId"`
	GenerationID uint   `json:"aiGenerationId"`
	Status       string `json:"status"`
	ImageURL     string `json:"imageUrl,omitempty"`
	Error        string `json:"error,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
}

// GenerationService 生成服务: 提交任务、轮询状态、发布为帖子
type GenerationService struct {
	repo     model.Repository
	registry *llm.Registry
	media    MediaStore

	publisher events.Publisher
	feed      FeedInvalidator

	estimatedSeconds int
	staleAfter       time.Duration
	sweepEvery       time.Duration

	// notifyFunc 用于通知生成完成事件（由调用方设置）
	notifyFunc func(userID uint, event GenerationEvent)
}

// NewGenerationService 创建生成服务实例
func NewGenerationService(repo model.Repository, registry *llm.Registry, mediaStore MediaStore, cfg config.Config) *GenerationService {
	estimated := cfg.GenerationEstimatedSec
	if estimated <= 0 {
		estimated = 30
	}
	return &GenerationService{
		repo:             repo,
		registry:         registry,
		media:            mediaStore,
		publisher:        events.Nop{},
		estimatedSeconds: estimated,
		staleAfter:       cfg.GenerationStaleAfter,
		sweepEvery:       cfg.GenerationSweepEvery,
	}
}

// SetNotifyFunc 设置通知函数（用于 SSE 推送）
func (s *GenerationService) SetNotifyFunc(fn func(userID uint, event GenerationEvent)) {
	s.notifyFunc = fn
}

// SetPublisher 设置领域事件发布器
func (s *GenerationService) SetPublisher(p events.Publisher) {
	if p == nil {
		p = events.Nop{}
	}
	s.publisher = p
}

// SetFeedInvalidator 设置 feed 缓存失效回调
func (s *GenerationService) SetFeedInvalidator(f FeedInvalidator) {
	s.feed = f
}

// Models lists the models that can be selected.
func (s *GenerationService) Models() dto.ModelListResponse {
	specs := s.registry.Models()
	models := make([]dto.ModelInfo, 0, len(specs))
	for _, spec := range specs {
		models = append(models, dto.ModelInfo{
			ID:                 spec.ID,
			Name:               spec.Name,
			Provider:           spec.Provider,
			DefaultSteps:       spec.DefaultSteps,
			MaxSteps:           spec.MaxSteps,
			DefaultGuidance:    spec.DefaultGuidance,
			AspectRatios:       llm.AspectRatios(),
			EstimatedSeconds:   spec.EstimatedSeconds,
			SupportsGuidance:   spec.SupportsGuidance,
			CompletesImmediate: spec.Synchronous,
		})
	}
	return dto.ModelListResponse{Success: true, Models: models}
}

// Start submits a generation job and records it as processing.
func (s *GenerationService) Start(ctx context.Context, userID uint, req dto.GenerateImageRequest) (*dto.GenerateImageResponse, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, llm.ErrPromptRequired
	}

	provider, spec, err := s.registry.Resolve(req.SelectedModel)
	if err != nil {
		return nil, err
	}

	submitted, err := provider.Submit(ctx, llm.SubmitRequest{
		Prompt:      prompt,
		Model:       spec.ID,
		AspectRatio: req.AspectRatio,
		Steps:       req.NumInferenceSteps,
		Guidance:    req.GuidanceScale,
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"model":   spec.ID,
		}).Warn("generation submit failed")
		return nil, err
	}

	record := &db.GenerationRecord{
		UserID:        userID,
		ExternalJobID: submitted.JobID,
		Kind:          db.GenerationKindImage,
		Provider:      submitted.Provider,
		Model:         submitted.Model,
		Prompt:        prompt,
		Parameters: datatypes.NewJSONType(db.GenerationParameters{
			AspectRatio:       submitted.Parameters.AspectRatio,
			ImageSize:         submitted.Parameters.ImageSize,
			NumInferenceSteps: submitted.Parameters.NumInferenceSteps,
			GuidanceScale:     submitted.Parameters.GuidanceScale,
		}),
		Status:   db.GenerationStatusProcessing,
		ClientID: strings.TrimSpace(req.ClientID),
	}
	if err := s.repo.CreateGenerationRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("create generation record: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{
		"record_id": record.ID,
		"job_id":    record.ExternalJobID,
		"user_id":   userID,
		"model":     record.Model,
	})
	log.Info("generation submitted")

	estimated := spec.EstimatedSeconds
	if estimated <= 0 {
		estimated = s.estimatedSeconds
	}
	resp := &dto.GenerateImageResponse{
		Success:        true,
		RequestID:      record.ExternalJobID,
		AIGenerationID: record.ID,
		EstimatedTime:  estimated,
		Status:         record.Status,
	}

	// 同步驱动已经返回结果
	if submitted.Result != nil {
		updated, err := s.complete(ctx, record, submitted.Result, "inline")
		if err != nil {
			log.WithError(err).Error("failed to store inline generation result")
			return nil, err
		}
		if f, ok := provider.(interface{ Forget(string) }); ok {
			f.Forget(record.ExternalJobID)
		}
		resp.Status = updated.Status
		resp.EstimatedTime = 0
	}
	return resp, nil
}

// Poll returns the job status. Terminal records are answered from the store without calling the provider.
func (s *GenerationService) Poll(ctx context.Context, userID uint, jobID string) (*dto.GenerationStatusResponse, error) {
	record, err := s.ownedRecord(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if record.IsTerminal() {
		resp := converter.GenerationToStatus(record)
		return &resp, nil
	}

	provider, ok := s.registry.Provider(record.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: provider %q is not configured", llm.ErrProviderUnavailable, record.Provider)
	}

	status, err := provider.Status(ctx, record.Model, record.ExternalJobID)
	if err != nil {
		return nil, err
	}

	switch status.Phase {
	case llm.PhaseCompleted:
		result, err := provider.Result(ctx, record.Model, record.ExternalJobID)
		if err != nil {
			msg, rejected := llm.RejectionMessage(err)
			if !rejected {
				return nil, err
			}
			updated, err := s.fail(ctx, record, msg, "poll")
			if err != nil {
				return nil, err
			}
			resp := converter.GenerationToStatus(updated)
			return &resp, nil
		}
		updated, err := s.complete(ctx, record, result, "poll")
		if err != nil {
			return nil, err
		}
		resp := converter.GenerationToStatus(updated)
		return &resp, nil

	case llm.PhaseFailed:
		updated, err := s.fail(ctx, record, firstNonEmpty(status.Error, "generation failed"), "poll")
		if err != nil {
			return nil, err
		}
		resp := converter.GenerationToStatus(updated)
		return &resp, nil
	}

	if len(status.Logs) > 0 {
		if err := s.repo.UpdateGenerationLogs(ctx, record.ExternalJobID, status.Logs); err != nil {
			logrus.WithError(err).WithField("job_id", record.ExternalJobID).Debug("failed to store generation logs")
		}
	}
	return &dto.GenerationStatusResponse{
		Success:       true,
		Status:        string(status.Phase),
		Prompt:        record.Prompt,
		QueuePosition: status.QueuePosition,
		Logs:          status.Logs,
	}, nil
}

// HandleWebhook applies a provider push notification. Unknown or terminal jobs are ignored.
func (s *GenerationService) HandleWebhook(ctx context.Context, event *llm.WebhookEvent) error {
	if event == nil {
		return nil
	}
	record, err := s.repo.GetGenerationRecordByJobID(ctx, event.JobID)
	if err != nil {
		return err
	}
	if record.IsTerminal() {
		return nil
	}

	switch event.Phase {
	case llm.PhaseCompleted:
		_, err = s.complete(ctx, record, event.Result, "webhook")
	case llm.PhaseFailed:
		_, err = s.fail(ctx, record, firstNonEmpty(event.Error, "generation failed"), "webhook")
	}
	return err
}

// Publish relocates the result into owned storage and creates the post in one transaction with the link.
// The relocated object is deleted again when the post cannot be created.
func (s *GenerationService) Publish(ctx context.Context, userID uint, req dto.CreateFromGenerationRequest) (*dto.PostItem, error) {
	record, err := s.ownedRecord(ctx, userID, req.RequestID)
	if err != nil {
		return nil, err
	}
	if record.Status != db.GenerationStatusCompleted || record.ResultURL == "" {
		return nil, entity.ErrGenerationNotCompleted
	}
	if record.IsPublished() {
		return nil, entity.ErrAlreadyPublished
	}

	visibility := strings.ToLower(strings.TrimSpace(req.Visibility))
	if visibility == "" {
		visibility = db.PostVisibilityPublic
	}
	if !db.ValidVisibility(visibility) {
		return nil, fmt.Errorf("%w: unknown visibility %q", entity.ErrInvalidPost, req.Visibility)
	}

	log := logrus.WithFields(logrus.Fields{
		"record_id": record.ID,
		"job_id":    record.ExternalJobID,
		"user_id":   userID,
	})

	relocated, err := s.media.Relocate(ctx, record.ResultURL, userID)
	if err != nil {
		return nil, err
	}

	post := &db.Post{
		UserID:        userID,
		Category:      db.PostCategoryImage,
		Title:         strings.TrimSpace(req.Title),
		Caption:       strings.TrimSpace(req.Caption),
		MediaURL:      relocated.PermanentURL,
		ThumbnailURL:  relocated.ThumbnailURL,
		MediaKey:      relocated.Key,
		IsAIGenerated: true,
		AIProvenance: datatypes.NewJSONType(db.AIProvenance{
			GenerationID: record.ID,
			Provider:     record.Provider,
			Model:        record.Model,
			Prompt:       record.Prompt,
			Parameters:   record.Parameters.Data(),
			Seed:         record.Seed,
		}),
		Visibility: visibility,
		Status:     db.PostStatusPublished,
	}

	if err := s.repo.CreatePostFromGeneration(ctx, post, req.Tags, record.ID); err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if discardErr := s.media.Discard(cleanupCtx, relocated.Keys()...); discardErr != nil {
			log.WithError(discardErr).WithField("key", relocated.Key).Error("failed to discard relocated media")
		}
		log.WithError(err).Warn("create post from generation failed")
		return nil, err
	}

	stored, err := s.repo.GetPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	metrics.PostsPublished.WithLabelValues("generation").Inc()
	log.WithField("post_id", post.ID).Info("generation published")
	if s.feed != nil {
		s.feed.InvalidateFeed(ctx)
	}
	s.publish(ctx, events.Event{
		Type:   events.TypePostPublished,
		Key:    postKey(post.ID),
		UserID: userID,
		Data: map[string]any{
			"post_id":       post.ID,
			"generation_id": record.ID,
			"visibility":    visibility,
		},
	})

	item := converter.PostToItem(stored)
	return &item, nil
}

// ListGenerations returns the caller's generation history.
func (s *GenerationService) ListGenerations(ctx context.Context, userID uint, query dto.GenerationQuery) (*dto.GenerationListResponse, error) {
	query.UserID = userID
	records, meta, err := s.repo.ListGenerationRecords(ctx, &query)
	if err != nil {
		return nil, err
	}
	return &dto.GenerationListResponse{
		Success:     true,
		Generations: converter.GenerationsToItems(records),
		Pagination:  dto.NewPagination(meta),
	}, nil
}

// RunSweeper fails stale processing records until ctx is done. A zero threshold disables it.
func (s *GenerationService) RunSweeper(ctx context.Context) {
	if s.staleAfter <= 0 {
		return
	}
	interval := s.sweepEvery
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{
		"stale_after": s.staleAfter.String(),
		"interval":    interval.String(),
	}).Info("generation sweeper started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				logrus.WithError(err).Warn("generation sweep failed")
			}
		}
	}
}

// SweepOnce marks open records older than the stale threshold as failed.
func (s *GenerationService) SweepOnce(ctx context.Context) (int, error) {
	if s.staleAfter <= 0 {
		return 0, nil
	}
	swept, err := s.repo.SweepStaleGenerations(ctx, time.Now().Add(-s.staleAfter), staleGenerationMessage)
	for i := range swept {
		s.announce(ctx, &swept[i], "sweep")
	}
	if len(swept) > 0 {
		logrus.WithField("count", len(swept)).Info("swept stale generations")
	}
	return len(swept), err
}

func (s *GenerationService) ownedRecord(ctx context.Context, userID uint, jobID string) (*db.GenerationRecord, error) {
	record, err := s.repo.GetGenerationRecordByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if record.UserID != userID {
		return nil, entity.ErrForbidden
	}
	return record, nil
}

// complete 标记完成; 并发请求输掉竞争时重新读取记录, 保证返回相同结果
func (s *GenerationService) complete(ctx context.Context, record *db.GenerationRecord, result *llm.Result, source string) (*db.GenerationRecord, error) {
	if result == nil || strings.TrimSpace(result.AssetURL) == "" {
		return s.fail(ctx, record, llm.ErrNoImages.Error(), source)
	}

	err := s.repo.MarkGenerationCompleted(ctx, record.ExternalJobID, result.AssetURL, result.Seed)
	if err != nil && !errors.Is(err, entity.ErrInvalidTransition) {
		return nil, err
	}
	won := err == nil

	updated, err := s.repo.GetGenerationRecordByJobID(ctx, record.ExternalJobID)
	if err != nil {
		return nil, err
	}
	if won {
		s.announce(ctx, updated, source)
	}
	return updated, nil
}

func (s *GenerationService) fail(ctx context.Context, record *db.GenerationRecord, message, source string) (*db.GenerationRecord, error) {
	err := s.repo.MarkGenerationFailed(ctx, record.ExternalJobID, message)
	if err != nil && !errors.Is(err, entity.ErrInvalidTransition) {
		return nil, err
	}
	won := err == nil

	updated, err := s.repo.GetGenerationRecordByJobID(ctx, record.ExternalJobID)
	if err != nil {
		return nil, err
	}
	if won {
		s.announce(ctx, updated, source)
	}
	return updated, nil
}

// announce 记录终态: 指标、SSE、领域事件
func (s *GenerationService) announce(ctx context.Context, record *db.GenerationRecord, source string) {
	metrics.GenerationTerminal.WithLabelValues(record.Status, source).Inc()

	logrus.WithFields(logrus.Fields{
		"record_id": record.ID,
		"job_id":    record.ExternalJobID,
		"user_id":   record.UserID,
		"status":    record.Status,
		"source":    source,
	}).Info("generation finished")

	event := GenerationEvent{
		RequestID:    record.ExternalJobID,
		GenerationID: record.ID,
		Status:       record.Status,
		ImageURL:     record.ResultURL,
		Error:        record.ErrorMessage,
		ClientID:     record.ClientID,
	}
	if s.notifyFunc != nil {
		s.notifyFunc(record.UserID, event)
	}

	eventType := events.TypeGenerationCompleted
	if record.Status == db.GenerationStatusFailed {
		eventType = events.TypeGenerationFailed
	}
	s.publish(ctx, events.Event{
		Type:   eventType,
		Key:    record.ExternalJobID,
		UserID: record.UserID,
		Data: map[string]any{
			"generation_id": record.ID,
			"model":         record.Model,
			"image_url":     record.ResultURL,
			"error":         record.ErrorMessage,
		},
	})
}

func (s *GenerationService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithField("type", event.Type).Warn("failed to publish event")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
