package model

import (
	"context"
	"time"

	"leelaaverse/internal/entity"
	"leelaaverse/internal/entity/common"
	"leelaaverse/internal/entity/db"
	"leelaaverse/internal/entity/dto"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *db.User) error
	UpdateUser(ctx context.Context, id uint, updates entity.UserUpdates) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByUsername(ctx context.Context, username string) (*db.User, error)
	GetUserByID(ctx context.Context, id uint) (*db.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// 生成记录
	CreateGenerationRecord(ctx context.Context, record *db.GenerationRecord) error
	GetGenerationRecordByJobID(ctx context.Context, jobID string) (*db.GenerationRecord, error)
	MarkGenerationCompleted(ctx context.Context, jobID, resultURL string, seed *int64) error
	MarkGenerationFailed(ctx context.Context, jobID, message string) error
	UpdateGenerationLogs(ctx context.Context, jobID string, logs []string) error
	ListGenerationRecords(ctx context.Context, params *dto.GenerationQuery) ([]db.GenerationRecord, *common.Meta, error)
	SweepStaleGenerations(ctx context.Context, olderThan time.Time, message string) ([]db.GenerationRecord, error)

	// 帖子
	CreatePost(ctx context.Context, post *db.Post, tagNames []string) error
	// 发布走 CreatePostFromGeneration, 建帖和关联在同一个事务里.
	// LinkGenerationToPost 只给已有帖子补关联用, 同样只认 post_id 为空的记录.
	CreatePostFromGeneration(ctx context.Context, post *db.Post, tagNames []string, recordID uint) error
	LinkGenerationToPost(ctx context.Context, recordID, postID uint) error
	GetPost(ctx context.Context, id uint) (*db.Post, error)
	ListPosts(ctx context.Context, params *dto.FeedQuery) ([]db.Post, *common.Meta, error)
	DeletePost(ctx context.Context, id uint) error
	IncrementPostCounters(ctx context.Context, id uint, deltas entity.PostCounterDeltas) error

	// 标签
	ListTags(ctx context.Context, limit int) ([]db.Tag, error)
}
