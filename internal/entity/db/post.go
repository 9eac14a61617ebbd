package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PostCategoryImage = "image"
	PostCategoryVideo = "video"
	PostCategoryText  = "text"
	PostCategoryMixed = "mixed"

	PostVisibilityPublic    = "public"
	PostVisibilityFollowers = "followers"
	PostVisibilityPrivate   = "private"

	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
	PostStatusArchived  = "archived"
)

// AIProvenance is the denormalized copy of the generation that produced a post.
type AIProvenance struct {
	GenerationID uint                 `json:"generation_id"`
	Provider     string               `json:"provider"`
	Model        string               `json:"model"`
	Prompt       string               `json:"prompt"`
	Parameters   GenerationParameters `json:"parameters"`
	Seed         *int64               `json:"seed,omitempty"`
}

// Post is a published piece of user content.
type Post struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint  `gorm:"column:user_id;index;not null" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	Category     string `gorm:"column:category;type:varchar(16);index;not null" json:"category"`
	Title        string `gorm:"column:title;type:varchar(255)" json:"title"`
	Caption      string `gorm:"column:caption;type:text" json:"caption"`
	MediaURL     string `gorm:"column:media_url;type:varchar(2048)" json:"media_url"`
	ThumbnailURL string `gorm:"column:thumbnail_url;type:varchar(2048)" json:"thumbnail_url"`
	MediaKey     string `gorm:"column:media_key;type:varchar(1024)" json:"-"`

	IsAIGenerated bool                             `gorm:"column:is_ai_generated;not null;default:false" json:"is_ai_generated"`
	AIProvenance  datatypes.JSONType[AIProvenance] `gorm:"column:ai_provenance" json:"-"`

	Visibility string `gorm:"column:visibility;type:varchar(16);index;not null" json:"visibility"`
	Status     string `gorm:"column:status;type:varchar(16);index;not null" json:"status"`

	LikesCount    int64 `gorm:"column:likes_count;not null;default:0" json:"likes_count"`
	CommentsCount int64 `gorm:"column:comments_count;not null;default:0" json:"comments_count"`
	SharesCount   int64 `gorm:"column:shares_count;not null;default:0" json:"shares_count"`
	SavesCount    int64 `gorm:"column:saves_count;not null;default:0" json:"saves_count"`
	ViewsCount    int64 `gorm:"column:views_count;not null;default:0" json:"views_count"`

	Tags []Tag `gorm:"many2many:post_tags;foreignKey:ID;joinForeignKey:PostID;references:ID;joinReferences:TagID" json:"tags"`
}

// TableName 指定表名
func (Post) TableName() string {
	return "posts"
}

// RequiresMedia reports whether the category needs a media URL.
func RequiresMedia(category string) bool {
	return category == PostCategoryImage || category == PostCategoryVideo
}

// ValidCategory reports whether category is a known post category.
func ValidCategory(category string) bool {
	switch category {
	case PostCategoryImage, PostCategoryVideo, PostCategoryText, PostCategoryMixed:
		return true
	}
	return false
}

// ValidVisibility reports whether visibility is a known visibility level.
func ValidVisibility(visibility string) bool {
	switch visibility {
	case PostVisibilityPublic, PostVisibilityFollowers, PostVisibilityPrivate:
		return true
	}
	return false
}
