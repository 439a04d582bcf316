package postgres

import (
	"context"

	"github.com/frahmantamala/asset-management/internal/audit"
	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

type LogRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) audit.RepositoryAPI {
	return &LogRepository{db: db}
}

func (r *LogRepository) Create(tx *gorm.DB, entry *auditDatamodel.LogEntry) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Omit("Actor").Create(entry).Error
}

func (r *LogRepository) List(ctx context.Context, filter audit.ListFilter) ([]*auditDatamodel.LogEntry, error) {
	var entries []*auditDatamodel.LogEntry
	q := r.db.WithContext(ctx).Preload("Actor").Order("action_time DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	err := q.Find(&entries).Error
	return entries, err
}

func (r *LogRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&auditDatamodel.LogEntry{}).Count(&n).Error
	return n, err
}
