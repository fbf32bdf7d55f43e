package localstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("inserting activity log: %w", err)
	}
	return nil
}

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// Recent returns the newest entries first. A non-positive limit means the
// default; larger limits are capped.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentLimit
	case limit > maxRecentLimit:
		limit = maxRecentLimit
	}
	var out []domain.ActivityLog
	err := r.db.WithContext(ctx).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing activity logs: %w", err)
	}
	return out, nil
}
