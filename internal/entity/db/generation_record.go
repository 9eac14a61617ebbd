package db

import (
	"time"

	"leelaaverse/internal/entity/common"

	"gorm.io/datatypes"
)

const (
	GenerationStatusPending    = "pending"
	GenerationStatusProcessing = "processing"
	GenerationStatusCompleted  = "completed"
	GenerationStatusFailed     = "failed"

	GenerationKindImage = "image"
)

// GenerationParameters are the provider-facing knobs after clamping and mapping.
type GenerationParameters struct {
	AspectRatio       string  `json:"aspect_ratio,omitempty"`
	ImageSize         string  `json:"image_size,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
	GuidanceScale     float64 `json:"guidance_scale,omitempty"`
}

// GenerationRecord tracks one asynchronous generation job from submission to publication.
type GenerationRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint  `gorm:"column:user_id;index;not null" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	ExternalJobID string `gorm:"column:external_job_id;type:varchar(255);uniqueIndex;not null" json:"external_job_id"`
	Kind          string `gorm:"column:kind;type:varchar(32);not null;default:image" json:"kind"`
	Provider      string `gorm:"column:provider;type:varchar(64);index" json:"provider"`
	Model         string `gorm:"column:model;type:varchar(128);index" json:"model"`
	Prompt        string `gorm:"column:prompt;type:text" json:"prompt"`

	Parameters datatypes.JSONType[GenerationParameters] `gorm:"column:parameters" json:"parameters"`

	Status       string             `gorm:"column:status;type:varchar(32);index;not null" json:"status"`
	ResultURL    string             `gorm:"column:result_url;type:varchar(2048)" json:"result_url"`
	Seed         *int64             `gorm:"column:seed" json:"seed,omitempty"`
	ErrorMessage string             `gorm:"column:error_message;type:text" json:"error_message"`
	Logs         common.StringArray `gorm:"column:logs;type:json" json:"logs"`
	CompletedAt  *time.Time         `gorm:"column:completed_at" json:"completed_at,omitempty"`

	PostID *uint `gorm:"column:post_id;uniqueIndex" json:"post_id,omitempty"`

	// ClientID 发起请求的 SSE 连接, 终态事件只推给它
	ClientID string `gorm:"column:client_id;type:varchar(64)" json:"client_id,omitempty"`
}

// TableName 指定表名
func (GenerationRecord) TableName() string {
	return "generation_records"
}

// IsTerminal reports whether the record can no longer change status.
func (r *GenerationRecord) IsTerminal() bool {
	return r.Status == GenerationStatusCompleted || r.Status == GenerationStatusFailed
}

// IsPublished reports whether a post was already created from this record.
func (r *GenerationRecord) IsPublished() bool {
	return r.PostID != nil
}
