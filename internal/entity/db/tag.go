package db

import "time"

// Tag 表示帖子标签。
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name       string `gorm:"size:64;uniqueIndex;not null" json:"name"`
	UsageCount int64  `gorm:"->;-:migration" json:"usage_count,omitempty"`
}

// TableName 指定表名
func (Tag) TableName() string {
	return "tags"
}

// PostTag 帖子与标签的关联表。
type PostTag struct {
	PostID    uint      `gorm:"primaryKey" json:"post_id"`
	TagID     uint      `gorm:"primaryKey" json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (PostTag) TableName() string {
	return "post_tags"
}
