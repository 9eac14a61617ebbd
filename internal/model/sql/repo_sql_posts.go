package sql

import (
	"context"
	"fmt"
	"strings"

	"leelaaverse/internal/entity"
	"leelaaverse/internal/entity/common"
	"leelaaverse/internal/entity/db"
	"leelaaverse/internal/entity/dto"

	"gorm.io/gorm"
)

// CreatePost inserts a post together with its tags.
func (r *GormRepository) CreatePost(ctx context.Context, post *db.Post, tagNames []string) error {
	if !r.ready() {
		return errNotInitialised
	}
	if post == nil {
		return fmt.Errorf("post is nil")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertPost(tx, post, tagNames)
	})
}

// CreatePostFromGeneration inserts the post and links the generation record in one transaction.
// A record that is already linked yields entity.ErrAlreadyPublished and nothing is written.
func (r *GormRepository) CreatePostFromGeneration(ctx context.Context, post *db.Post, tagNames []string, recordID uint) error {
	if !r.ready() {
		return errNotInitialised
	}
	if post == nil {
		return fmt.Errorf("post is nil")
	}
	if recordID == 0 {
		return fmt.Errorf("invalid generation record id")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record db.GenerationRecord
		if err := tx.First(&record, recordID).Error; err != nil {
			return err
		}
		if record.Status != db.GenerationStatusCompleted || record.ResultURL == "" {
			return entity.ErrGenerationNotCompleted
		}
		if record.PostID != nil {
			return entity.ErrAlreadyPublished
		}

		if err := insertPost(tx, post, tagNames); err != nil {
			return err
		}

		return linkGeneration(tx, recordID, post.ID)
	})
}

// LinkGenerationToPost sets the post id of a record that has none yet.
// Publishing does not call it: CreatePostFromGeneration runs the same conditional
// update inside its own transaction. This is for linking a post that already exists.
func (r *GormRepository) LinkGenerationToPost(ctx context.Context, recordID, postID uint) error {
	if !r.ready() {
		return errNotInitialised
	}
	if recordID == 0 || postID == 0 {
		return fmt.Errorf("invalid link %d -> %d", recordID, postID)
	}
	return linkGeneration(r.db.WithContext(ctx), recordID, postID)
}

func linkGeneration(tx *gorm.DB, recordID, postID uint) error {
	result := tx.Model(&db.GenerationRecord{}).
		Where("id = ? AND post_id IS NULL", recordID).
		Update("post_id", postID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&db.GenerationRecord{}).Where("id = ?", recordID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return entity.ErrAlreadyPublished
}

func insertPost(tx *gorm.DB, post *db.Post, tagNames []string) error {
	tags, err := ensureTags(tx, tagNames)
	if err != nil {
		return err
	}
	post.Tags = tags
	return tx.Create(post).Error
}

// GetPost loads a post with author and tags. Soft-deleted posts are not found.
func (r *GormRepository) GetPost(ctx context.Context, id uint) (*db.Post, error) {
	if !r.ready() {
		return nil, errNotInitialised
	}
	if id == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var post db.Post
	if err := r.db.WithContext(ctx).Preload("User").Preload("Tags").First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts returns published posts visible to the viewer, newest first.
func (r *GormRepository) ListPosts(ctx context.Context, params *dto.FeedQuery) ([]db.Post, *common.Meta, error) {
	if !r.ready() {
		return nil, nil, errNotInitialised
	}
	if params == nil {
		params = &dto.FeedQuery{}
	}
	params.Normalize(20, 50)

	query := r.db.WithContext(ctx).Model(&db.Post{})
	if params.ViewerID > 0 {
		query = query.Where("(posts.visibility = ? AND posts.status = ?) OR posts.user_id = ?",
			db.PostVisibilityPublic, db.PostStatusPublished, params.ViewerID)
	} else {
		query = query.Where("posts.visibility = ? AND posts.status = ?", db.PostVisibilityPublic, db.PostStatusPublished)
	}
	if params.AuthorID > 0 {
		query = query.Where("posts.user_id = ?", params.AuthorID)
	}
	if category := strings.ToLower(strings.TrimSpace(params.Category)); category != "" && category != "all" {
		query = query.Where("posts.category = ?", category)
	}
	if tag := normaliseTagNames([]string{params.Tag}); len(tag) == 1 {
		sub := r.db.Table("post_tags").
			Select("post_tags.post_id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name = ?", tag[0])
		query = query.Where("posts.id IN (?)", sub)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var posts []db.Post
	if err := query.Preload("User").Preload("Tags").
		Order("posts.created_at DESC, posts.id DESC").
		Offset(params.Offset()).
		Limit(int(params.PageSize)).
		Find(&posts).Error; err != nil {
		return nil, nil, err
	}
	return posts, r.calculatePagination(total, params.Page, params.PageSize), nil
}

// DeletePost soft-deletes a post.
func (r *GormRepository) DeletePost(ctx context.Context, id uint) error {
	if !r.ready() {
		return errNotInitialised
	}
	if id == 0 {
		return fmt.Errorf("invalid post id")
	}
	result := r.db.WithContext(ctx).Delete(&db.Post{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementPostCounters applies engagement deltas atomically.
func (r *GormRepository) IncrementPostCounters(ctx context.Context, id uint, deltas entity.PostCounterDeltas) error {
	if !r.ready() {
		return errNotInitialised
	}
	cols := deltas.Columns()
	if len(cols) == 0 {
		return nil
	}
	updates := make(map[string]interface{}, len(cols))
	for col, delta := range cols {
		updates[col] = gorm.Expr(col+" + ?", delta)
	}
	result := r.db.WithContext(ctx).Model(&db.Post{}).Where("id = ?", id).UpdateColumns(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
