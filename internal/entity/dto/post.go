package dto

import (
	"time"

	"leelaaverse/internal/entity/common"
)

// Pagination is the paging block returned by list endpoints.
type Pagination struct {
	Page    int64 `json:"page"`
	Limit   int64 `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
	HasMore bool  `json:"hasMore"`
}

// NewPagination builds the response block from repository metadata.
func NewPagination(meta *common.Meta) Pagination {
	if meta == nil {
		return Pagination{}
	}
	return Pagination{
		Page:    meta.Page,
		Limit:   meta.PageSize,
		Total:   meta.Total,
		Pages:   meta.Pages(),
		HasMore: meta.HasMore(),
	}
}

// CreateFromGenerationRequest publishes a completed generation as a post.
type CreateFromGenerationRequest struct {
	RequestID  string   `json:"requestId" binding:"required"`
	Caption    string   `json:"caption" binding:"max=2200"`
	Title      string   `json:"title" binding:"max=255"`
	Tags       []string `json:"tags" binding:"max=20,dive,max=64"`
	Visibility string   `json:"visibility" binding:"omitempty,visibility"`
}

// CreatePostRequest creates a text post or carries form fields for an upload.
type CreatePostRequest struct {
	Category   string   `json:"category" form:"category" binding:"omitempty,post_category"`
	Caption    string   `json:"caption" form:"caption" binding:"max=2200"`
	Title      string   `json:"title" form:"title" binding:"max=255"`
	Tags       []string `json:"tags" form:"tags" binding:"max=20,dive,max=64"`
	Visibility string   `json:"visibility" form:"visibility" binding:"omitempty,visibility"`
	MediaURL   string   `json:"mediaUrl" form:"-"`
}

// AuthorSummary is the public author block attached to posts.
type AuthorSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// AIProvenance exposes the generation metadata of an AI post.
type AIProvenance struct {
	GenerationID      uint    `json:"generationId"`
	Provider          string  `json:"provider"`
	Model             string  `json:"model"`
	Prompt            string  `json:"prompt"`
	AspectRatio       string  `json:"aspectRatio,omitempty"`
	NumInferenceSteps int     `json:"numInferenceSteps,omitempty"`
	GuidanceScale     float64 `json:"guidanceScale,omitempty"`
	Seed              *int64  `json:"seed,omitempty"`
}

// PostItem is the response representation of a post.
type PostItem struct {
	ID            uint          `json:"id"`
	Author        AuthorSummary `json:"author"`
	Category      string        `json:"category"`
	Title         string        `json:"title,omitempty"`
	Caption       string        `json:"caption"`
	MediaURL      string        `json:"mediaUrl,omitempty"`
	ThumbnailURL  string        `json:"thumbnailUrl,omitempty"`
	IsAIGenerated bool          `json:"isAiGenerated"`
	AIProvenance  *AIProvenance `json:"aiProvenance,omitempty"`
	Tags          []string      `json:"tags"`
	Visibility    string        `json:"visibility"`
	Status        string        `json:"status"`
	LikesCount    int64         `json:"likesCount"`
	CommentsCount int64         `json:"commentsCount"`
	SharesCount   int64         `json:"sharesCount"`
	SavesCount    int64         `json:"savesCount"`
	ViewsCount    int64         `json:"viewsCount"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// PostResponse wraps a single post.
type PostResponse struct {
	Success bool     `json:"success"`
	Post    PostItem `json:"post"`
}

// FeedQuery filters the public feed.
type FeedQuery struct {
	common.BaseParams
	Category string `json:"category" form:"category" query:"category"`
	Tag      string `json:"tag" form:"tag" query:"tag"`
	AuthorID uint   `json:"-" form:"-" query:"-"`
	ViewerID uint   `json:"-" form:"-" query:"-"`
}

// FeedResponse is the paginated feed.
type FeedResponse struct {
	Success    bool       `json:"success"`
	Posts      []PostItem `json:"posts"`
	Pagination Pagination `json:"pagination"`
}
