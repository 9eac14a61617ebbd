package sql

import (
	"context"
	"strings"

	"leelaaverse/internal/entity/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListTags returns tags ordered by how many live posts use them.
func (r *GormRepository) ListTags(ctx context.Context, limit int) ([]db.Tag, error) {
	if !r.ready() {
		return nil, errNotInitialised
	}
	if limit <= 0 {
		limit = 100
	}

	var tags []db.Tag
	query := r.db.WithContext(ctx).
		Model(&db.Tag{}).
		Select("tags.*, COUNT(posts.id) as usage_count").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("LEFT JOIN posts ON posts.id = post_tags.post_id AND posts.deleted_at IS NULL").
		Group("tags.id").
		Order("usage_count DESC, tags.name ASC").
		Limit(limit)

	if err := query.Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// ensureTags finds or creates the named tags inside tx.
func ensureTags(tx *gorm.DB, names []string) ([]db.Tag, error) {
	unique := normaliseTagNames(names)
	if len(unique) == 0 {
		return nil, nil
	}

	rows := make([]db.Tag, len(unique))
	for i, name := range unique {
		rows[i] = db.Tag{Name: name}
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return nil, err
	}

	var tags []db.Tag
	if err := tx.Where("name IN ?", unique).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func normaliseTagNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#")))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
