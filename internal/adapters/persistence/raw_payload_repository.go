package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
)

// GormRawPayloadRepository manages the raw vendor payload store
type GormRawPayloadRepository struct {
	db *gorm.DB
}

// NewGormRawPayloadRepository creates a new GORM raw-payload repository
func NewGormRawPayloadRepository(db *gorm.DB) *GormRawPayloadRepository {
	return &GormRawPayloadRepository{db: db}
}

// PurgeExpired deletes all payloads whose TTL has elapsed, reporting
// before-stats on the expired set.
func (r *GormRawPayloadRepository) PurgeExpired(ctx context.Context, now time.Time) (common.PurgeResult, error) {
	start := time.Now()
	var result common.PurgeResult

	type beforeStats struct {
		ExpiredCount int64
		MaxSize      int64
		OldestExpiry *time.Time
	}
	var before beforeStats
	err := r.db.WithContext(ctx).Model(&SyncRawModel{}).
		Select("COUNT(*) as expired_count, COALESCE(MAX(LENGTH(raw_data)), 0) as max_size, MIN(expires_at) as oldest_expiry").
		Where("expires_at < ?", now).
		Scan(&before).Error
	if err != nil {
		return result, fmt.Errorf("failed to gather purge stats: %w", err)
	}

	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&SyncRawModel{})
	if res.Error != nil {
		return result, fmt.Errorf("failed to purge raw payloads: %w", res.Error)
	}

	result.PurgedCount = res.RowsAffected
	result.MaxSizeBytes = before.MaxSize
	result.OldestExpiredAt = before.OldestExpiry
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

// Stats reports the current shape of the raw payload table
func (r *GormRawPayloadRepository) Stats(ctx context.Context, now time.Time) (common.StorageStats, error) {
	var stats common.StorageStats

	type agg struct {
		TotalRecords int64
		TotalBytes   int64
		AvgBytes     float64
		MaxBytes     int64
	}
	var a agg
	err := r.db.WithContext(ctx).Model(&SyncRawModel{}).
		Select("COUNT(*) as total_records, COALESCE(SUM(LENGTH(raw_data)), 0) as total_bytes, COALESCE(AVG(LENGTH(raw_data)), 0) as avg_bytes, COALESCE(MAX(LENGTH(raw_data)), 0) as max_bytes").
		Scan(&a).Error
	if err != nil {
		return stats, fmt.Errorf("failed to gather storage stats: %w", err)
	}
	stats.TotalRecords = a.TotalRecords
	stats.TotalBytes = a.TotalBytes
	stats.AvgBytes = a.AvgBytes
	stats.MaxBytes = a.MaxBytes

	if err := r.db.WithContext(ctx).Model(&SyncRawModel{}).
		Where("expires_at < ?", now).Count(&stats.ExpiredCount).Error; err != nil {
		return stats, fmt.Errorf("failed to count expired payloads: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&SyncRawModel{}).
		Where("expires_at >= ? AND expires_at < ?", now, now.Add(24*time.Hour)).
		Count(&stats.ExpiringSoon).Error; err != nil {
		return stats, fmt.Errorf("failed to count expiring payloads: %w", err)
	}
	return stats, nil
}
