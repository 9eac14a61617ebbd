package sql

import (
	"fmt"

	"leelaaverse/internal/entity/common"

	"gorm.io/gorm"
)

var errNotInitialised = fmt.Errorf("repository not initialised")

// GormRepository implements Repository using GORM
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new repository instance
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) ready() bool {
	return r != nil && r.db != nil
}

// calculatePagination calculates pagination metrics
func (r *GormRepository) calculatePagination(totalCount int64, page, pageSize int64) *common.Meta {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}

	return &common.Meta{
		Total:    totalCount,
		Page:     page,
		PageSize: pageSize,
	}
}
