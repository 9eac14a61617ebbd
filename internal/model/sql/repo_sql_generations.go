package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leelaaverse/internal/entity"
	"leelaaverse/internal/entity/common"
	"leelaaverse/internal/entity/db"
	"leelaaverse/internal/entity/dto"

	"gorm.io/gorm"
)

var openGenerationStatuses = []string{db.GenerationStatusPending, db.GenerationStatusProcessing}

// CreateGenerationRecord inserts a new generation record. Records start in processing.
func (r *GormRepository) CreateGenerationRecord(ctx context.Context, record *db.GenerationRecord) error {
	if !r.ready() {
		return errNotInitialised
	}
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(record.ExternalJobID) == "" {
		return fmt.Errorf("external job id is empty")
	}
	if record.Status == "" {
		record.Status = db.GenerationStatusProcessing
	}
	if record.Kind == "" {
		record.Kind = db.GenerationKindImage
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// GetGenerationRecordByJobID loads a record by the provider's job id.
func (r *GormRepository) GetGenerationRecordByJobID(ctx context.Context, jobID string) (*db.GenerationRecord, error) {
	if !r.ready() {
		return nil, errNotInitialised
	}
	trimmed := strings.TrimSpace(jobID)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}

	var record db.GenerationRecord
	if err := r.db.WithContext(ctx).Where("external_job_id = ?", trimmed).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkGenerationCompleted moves an open record to completed.
// Terminal records are left untouched and entity.ErrInvalidTransition is returned.
func (r *GormRepository) MarkGenerationCompleted(ctx context.Context, jobID, resultURL string, seed *int64) error {
	if !r.ready() {
		return errNotInitialised
	}
	if strings.TrimSpace(resultURL) == "" {
		return fmt.Errorf("result url is empty")
	}
	now := time.Now()
	return r.transitionGeneration(ctx, jobID, map[string]interface{}{
		"status":        db.GenerationStatusCompleted,
		"result_url":    resultURL,
		"seed":          seed,
		"error_message": "",
		"completed_at":  now,
	})
}

// MarkGenerationFailed moves an open record to failed.
func (r *GormRepository) MarkGenerationFailed(ctx context.Context, jobID, message string) error {
	if !r.ready() {
		return errNotInitialised
	}
	now := time.Now()
	return r.transitionGeneration(ctx, jobID, map[string]interface{}{
		"status":        db.GenerationStatusFailed,
		"result_url":    "",
		"error_message": message,
		"completed_at":  now,
	})
}

func (r *GormRepository) transitionGeneration(ctx context.Context, jobID string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&db.GenerationRecord{}).
		Where("external_job_id = ? AND status IN ?", jobID, openGenerationStatuses).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&db.GenerationRecord{}).Where("external_job_id = ?", jobID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return entity.ErrInvalidTransition
}

// UpdateGenerationLogs stores the latest provider log lines on an open record.
func (r *GormRepository) UpdateGenerationLogs(ctx context.Context, jobID string, logs []string) error {
	if !r.ready() {
		return errNotInitialised
	}
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.GenerationRecord{}).
		Where("external_job_id = ? AND status IN ?", jobID, openGenerationStatuses).
		Update("logs", common.StringArray(logs)).Error
}

// ListGenerationRecords retrieves a user's generation history.
func (r *GormRepository) ListGenerationRecords(ctx context.Context, params *dto.GenerationQuery) ([]db.GenerationRecord, *common.Meta, error) {
	if !r.ready() {
		return nil, nil, errNotInitialised
	}
	if params == nil {
		params = &dto.GenerationQuery{}
	}
	params.Normalize(20, 50)

	query := r.db.WithContext(ctx).Model(&db.GenerationRecord{})
	if params.UserID > 0 {
		query = query.Where("user_id = ?", params.UserID)
	}
	if status := strings.ToLower(strings.TrimSpace(params.Status)); status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var records []db.GenerationRecord
	if err := query.Order("created_at DESC, id DESC").Offset(params.Offset()).Limit(int(params.PageSize)).Find(&records).Error; err != nil {
		return nil, nil, err
	}
	return records, r.calculatePagination(total, params.Page, params.PageSize), nil
}

// SweepStaleGenerations fails every open record created before olderThan and returns them.
func (r *GormRepository) SweepStaleGenerations(ctx context.Context, olderThan time.Time, message string) ([]db.GenerationRecord, error) {
	if !r.ready() {
		return nil, errNotInitialised
	}

	var stale []db.GenerationRecord
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", openGenerationStatuses, olderThan).
		Find(&stale).Error; err != nil {
		return nil, err
	}

	swept := make([]db.GenerationRecord, 0, len(stale))
	for _, record := range stale {
		err := r.MarkGenerationFailed(ctx, record.ExternalJobID, message)
		if errors.Is(err, entity.ErrInvalidTransition) {
			continue
		}
		if err != nil {
			return swept, err
		}
		record.Status = db.GenerationStatusFailed
		record.ErrorMessage = message
		swept = append(swept, record)
	}
	return swept, nil
}
